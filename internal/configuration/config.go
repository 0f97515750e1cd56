package configuration

import (
	"encoding/json"
	"os"

	"MindEase/internal/model"
)

type MongoConfig struct {
	Uri      string `json:"uri"`
	Database string `json:"database"`
}

type ServerConfig struct {
	AppPort        int      `json:"app_port"`
	SocketPort     int      `json:"socket_port"`
	SocketRoute    string   `json:"socket_route"`
	AllowedOrigins []string `json:"allowed_origins"`
}

// StorageConfig selects the realtime store backing. "mongo" is the
// production mode; "memory" runs everything in-process for local
// development and demos (history REST endpoints are unavailable there).
type StorageConfig struct {
	Mode string `json:"mode"`
}

type ConsultConfig struct {
	TypingExpiryMs     int                   `json:"typing_expiry_ms"`
	VideoRoomBaseURL   string                `json:"video_room_base_url"`
	Rules              []model.SpecialtyRule `json:"rules"`
	MatchedConfidence  string                `json:"matched_confidence"`
	FallbackSpecialty  string                `json:"fallback_specialty"`
	FallbackConfidence string                `json:"fallback_confidence"`
}

type Config struct {
	Mongo   MongoConfig   `json:"mongo"`
	Server  ServerConfig  `json:"server"`
	Storage StorageConfig `json:"storage"`
	Consult ConsultConfig `json:"consult"`
}

func LoadConfig(config_path string) (*Config, error) {
	file, err := os.ReadFile(config_path)
	if err != nil {
		return nil, err
	}

	var config Config
	err = json.Unmarshal(file, &config)
	if err != nil {
		return nil, err
	}

	return &config, nil
}
