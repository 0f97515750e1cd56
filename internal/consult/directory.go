package consult

import (
	"context"
	"fmt"
	"sync"

	"MindEase/internal/model"
	"MindEase/internal/store"

	"go.uber.org/zap"
)

// Directory is a live cache of the doctor list. Doctors are externally
// owned; availability toggles arrive through the same snapshot feed the
// rest of the core consumes.
type Directory struct {
	log *zap.Logger
	sub store.Subscription

	mu      sync.RWMutex
	doctors []model.Doctor
}

func NewDirectory(ctx context.Context, st store.Store, log *zap.Logger) (*Directory, error) {
	if log == nil {
		log = zap.NewNop()
	}
	sub, err := st.Subscribe(ctx, doctorsPath, store.OrderBy{Field: "name", Ascending: true})
	if err != nil {
		return nil, fmt.Errorf("subscribe doctors: %w", err)
	}

	d := &Directory{log: log, sub: sub}
	go d.pump()
	return d, nil
}

func (d *Directory) pump() {
	for snap := range d.sub.Snapshots() {
		doctors := make([]model.Doctor, 0, len(snap.Docs))
		for _, doc := range snap.Docs {
			doctors = append(doctors, doctorFromDocument(doc))
		}
		d.mu.Lock()
		d.doctors = doctors
		d.mu.Unlock()
	}
	if err := d.sub.Err(); err != nil {
		d.log.Warn("doctor directory feed terminated", zap.Error(err))
	}
}

// Doctors returns a copy of the current directory.
func (d *Directory) Doctors() []model.Doctor {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]model.Doctor, len(d.doctors))
	copy(out, d.doctors)
	return out
}

// Find looks a doctor up by id.
func (d *Directory) Find(id string) (model.Doctor, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, doc := range d.doctors {
		if doc.ID == id {
			return doc, true
		}
	}
	return model.Doctor{}, false
}

func (d *Directory) Close() {
	d.sub.Close()
}
