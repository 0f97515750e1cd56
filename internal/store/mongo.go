package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Mongo implements Store on top of a MongoDB database. Firestore-style
// subcollection paths flatten onto plain collections: "a/b/c" becomes
// collection "a_c" with a parent_id field, and nested document ids are
// prefixed with their parent ("b/d") to stay unique per collection.
// Subscriptions ride change streams and re-query the full ordered set
// on every event, so consumers always see whole snapshots.
type Mongo struct {
	db  *mongo.Database
	log *zap.Logger

	mu     sync.Mutex
	lastTS time.Time
}

func NewMongo(db *mongo.Database, log *zap.Logger) *Mongo {
	return &Mongo{db: db, log: log}
}

// mongoRef locates the collection and document filter for a path.
type mongoRef struct {
	coll   *mongo.Collection
	docID  string // empty for collection refs
	parent string // parent document id for subcollections
}

func (s *Mongo) resolve(path string) (mongoRef, error) {
	segs, err := splitPath(path)
	if err != nil {
		return mongoRef{}, err
	}

	switch len(segs) {
	case 1:
		return mongoRef{coll: s.db.Collection(segs[0])}, nil
	case 2:
		return mongoRef{coll: s.db.Collection(segs[0]), docID: segs[1]}, nil
	case 3:
		return mongoRef{coll: s.db.Collection(segs[0] + "_" + segs[2]), parent: segs[1]}, nil
	default:
		return mongoRef{
			coll:   s.db.Collection(segs[0] + "_" + segs[2]),
			parent: segs[1],
			docID:  segs[1] + "/" + segs[3],
		}, nil
	}
}

func (r mongoRef) filter() bson.M {
	f := bson.M{}
	if r.docID != "" {
		f["_id"] = r.docID
	}
	if r.parent != "" {
		f["parent_id"] = r.parent
	}
	return f
}

func (s *Mongo) Put(ctx context.Context, path string, fields map[string]any, merge bool) error {
	ref, err := s.resolve(path)
	if err != nil {
		return err
	}
	if ref.docID == "" {
		return ErrNotDocument
	}

	doc := bson.M{}
	for k, v := range s.resolveTimestamps(fields) {
		doc[k] = v
	}
	if ref.parent != "" {
		doc["parent_id"] = ref.parent
	}

	opts := options.Update().SetUpsert(true)
	update := bson.M{"$set": doc}
	if !merge {
		// Whole-document replace keeps put(merge:false) semantics: fields
		// absent from the write are removed.
		_, err = ref.coll.ReplaceOne(ctx, bson.M{"_id": ref.docID}, doc, options.Replace().SetUpsert(true))
	} else {
		_, err = ref.coll.UpdateOne(ctx, bson.M{"_id": ref.docID}, update, opts)
	}
	if err != nil {
		return fmt.Errorf("put %s: %w", path, err)
	}
	return nil
}

func (s *Mongo) Append(ctx context.Context, collectionPath string, fields map[string]any) (string, error) {
	ref, err := s.resolve(collectionPath)
	if err != nil {
		return "", err
	}
	if ref.docID != "" {
		return "", ErrNotCollection
	}

	id := uuid.NewString()
	doc := bson.M{"_id": id}
	for k, v := range s.resolveTimestamps(fields) {
		doc[k] = v
	}
	if ref.parent != "" {
		doc["parent_id"] = ref.parent
	}

	if _, err := ref.coll.InsertOne(ctx, doc); err != nil {
		return "", fmt.Errorf("append %s: %w", collectionPath, err)
	}
	return id, nil
}

func (s *Mongo) Subscribe(ctx context.Context, path string, order OrderBy) (Subscription, error) {
	ref, err := s.resolve(path)
	if err != nil {
		return nil, err
	}

	streamCtx, cancel := context.WithCancel(ctx)
	sub := newSnapshotStream(cancel)

	snap, err := s.query(streamCtx, ref, order)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("subscribe %s: %w", path, err)
	}
	sub.push(snap)

	go s.watch(streamCtx, sub, ref, order, path)
	return sub, nil
}

// watch tails the collection's change stream and re-emits the full
// ordered set after every event. Re-querying instead of folding diffs
// keeps the view correct under reordering and backfill.
func (s *Mongo) watch(ctx context.Context, sub *snapshotStream, ref mongoRef, order OrderBy, path string) {
	cs, err := ref.coll.Watch(ctx, mongo.Pipeline{})
	if err != nil {
		s.log.Error("change stream open failed", zap.String("path", path), zap.Error(err))
		sub.fail(err)
		return
	}
	defer cs.Close(context.Background())

	for cs.Next(ctx) {
		snap, err := s.query(ctx, ref, order)
		if err != nil {
			if ctx.Err() != nil {
				sub.fail(nil)
				return
			}
			s.log.Error("snapshot re-query failed", zap.String("path", path), zap.Error(err))
			sub.fail(err)
			return
		}
		if !sub.push(snap) {
			return
		}
	}

	if err := cs.Err(); err != nil && ctx.Err() == nil {
		s.log.Warn("change stream terminated", zap.String("path", path), zap.Error(err))
		sub.fail(err)
		return
	}
	sub.fail(nil)
}

func (s *Mongo) query(ctx context.Context, ref mongoRef, order OrderBy) (Snapshot, error) {
	if ref.docID != "" {
		var raw bson.M
		err := ref.coll.FindOne(ctx, ref.filter()).Decode(&raw)
		if err == mongo.ErrNoDocuments {
			return Snapshot{}, nil
		}
		if err != nil {
			return Snapshot{}, err
		}
		return Snapshot{Docs: []Document{decodeDocument(raw)}}, nil
	}

	findOpts := options.Find()
	if order.Field != "" {
		dir := 1
		if !order.Ascending {
			dir = -1
		}
		findOpts.SetSort(bson.D{{Key: order.Field, Value: dir}})
	}

	cursor, err := ref.coll.Find(ctx, ref.filter(), findOpts)
	if err != nil {
		return Snapshot{}, err
	}
	defer cursor.Close(ctx)

	var raws []bson.M
	if err := cursor.All(ctx, &raws); err != nil {
		return Snapshot{}, err
	}

	docs := make([]Document, 0, len(raws))
	for _, raw := range raws {
		docs = append(docs, decodeDocument(raw))
	}
	return Snapshot{Docs: docs}, nil
}

func decodeDocument(raw bson.M) Document {
	doc := Document{Fields: make(map[string]any, len(raw))}
	for k, v := range raw {
		switch k {
		case "_id":
			doc.ID, _ = v.(string)
			continue
		case "parent_id":
			continue
		}
		if dt, ok := v.(primitive.DateTime); ok {
			v = dt.Time().UTC()
		}
		doc.Fields[k] = v
	}
	return doc
}

// now returns a strictly increasing timestamp (the per-writer clock
// behind the ServerTimestamp sentinel).
func (s *Mongo) now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := time.Now().UTC()
	if !t.After(s.lastTS) {
		t = s.lastTS.Add(time.Millisecond)
	}
	s.lastTS = t
	return t
}

func (s *Mongo) resolveTimestamps(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		if _, ok := v.(ServerTimestamp); ok {
			out[k] = s.now()
			continue
		}
		out[k] = v
	}
	return out
}
