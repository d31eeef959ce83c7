package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port     int
	Password string

	ModelPath       string
	ModelConfigPath string
	LabelsPath      string
	ModelBackend    string
	ModelTarget     string

	Threshold  float64 // Minimalny wynik (score) wykrycia, porownanie scisle
	InputSize  int     // Bok kwadratowego wejscia sieci, 0 = rozmiar klatki
	InputScale float64
	InputMean  float64

	FrontCamera   string // Urzadzenie dla facingMode "user"
	RearCamera    string // Urzadzenie dla facingMode "environment"
	DisplayWidth  int    // Rozmiar elementu wyswietlajacego, 0 = rozmiar klatki
	DisplayHeight int
	TargetFPS     int

	AutoStart          bool
	AutoStartUserAgent string

	DatabasePath string
	LogDirectory string
	LogLevel     string
	StaticDir    string
}

// Load reads configuration from an optional .env file and the environment.
// Variables already present in the environment win over the .env file.
func Load() *Config {
	envFile := getEnv("ENV_FILE", ".env")
	_ = godotenv.Load(envFile)

	return &Config{
		Port:     getEnvAsInt("PORT", 8080),
		Password: getEnv("PASSWORD", "detect"),

		ModelPath:       getEnv("MODEL_PATH", filepath.Join("assets", "models", "frozen_inference_graph.pb")),
		ModelConfigPath: getEnv("MODEL_CONFIG_PATH", filepath.Join("assets", "models", "ssd_mobilenet_v1_coco.pbtxt")),
		LabelsPath:      getEnv("LABELS_PATH", filepath.Join("assets", "models", "coco_labels.txt")),
		ModelBackend:    getEnv("MODEL_BACKEND", "default"),
		ModelTarget:     getEnv("MODEL_TARGET", "cpu"),

		Threshold:  getEnvAsFloat("THRESHOLD", 0.7),
		InputSize:  getEnvAsInt("INPUT_SIZE", 300),
		InputScale: getEnvAsFloat("INPUT_SCALE", 1.0),
		InputMean:  getEnvAsFloat("INPUT_MEAN", 0),

		FrontCamera:   getEnv("FRONT_CAMERA", "0"),
		RearCamera:    getEnv("REAR_CAMERA", "1"),
		DisplayWidth:  getEnvAsInt("DISPLAY_WIDTH", 0),
		DisplayHeight: getEnvAsInt("DISPLAY_HEIGHT", 0),
		TargetFPS:     getEnvAsInt("TARGET_FPS", 30),

		AutoStart:          getEnvAsBool("AUTO_START", false),
		AutoStartUserAgent: getEnv("AUTO_START_USER_AGENT", ""),

		DatabasePath: getEnv("DB_PATH", filepath.Join(".", "data", "sessions.db")),
		LogDirectory: getEnv("LOG_DIR", filepath.Join(".", "logs")),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		StaticDir:    getEnv("STATIC_DIR", "static"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
