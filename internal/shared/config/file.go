package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// fileConfig mirrors the optional YAML config file. Values are strings so the
// same parsers apply to both sources.
type fileConfig struct {
	Server struct {
		Port             string   `yaml:"port"`
		Env              string   `yaml:"env"`
		LogLevel         string   `yaml:"logLevel"`
		CORSAllowOrigins []string `yaml:"corsAllowOrigins"`
	} `yaml:"server"`
	Store struct {
		Backend       string `yaml:"backend"`
		DataDir       string `yaml:"dataDir"`
		RedisURL      string `yaml:"redisUrl"`
		RedisPrefix   string `yaml:"redisPrefix"`
		MongoURI      string `yaml:"mongoUri"`
		MongoDatabase string `yaml:"mongoDatabase"`
		DatabaseURL   string `yaml:"databaseUrl"`
		SeedOnStart   string `yaml:"seedOnStart"`
	} `yaml:"store"`
	Objects struct {
		Type           string `yaml:"type"`
		LocalDir       string `yaml:"localDir"`
		AWSRegion      string `yaml:"awsRegion"`
		S3Bucket       string `yaml:"s3Bucket"`
		S3Prefix       string `yaml:"s3Prefix"`
		MinioEndpoint  string `yaml:"minioEndpoint"`
		MinioAccessKey string `yaml:"minioAccessKey"`
		MinioBucket    string `yaml:"minioBucket"`
		MinioUseSSL    string `yaml:"minioUseSsl"`
		MaxUploadBytes string `yaml:"maxUploadBytes"`
	} `yaml:"objects"`
	Auth struct {
		SessionTTL        string `yaml:"sessionTtl"`
		GoogleClientID    string `yaml:"googleClientId"`
		GoogleRedirectURL string `yaml:"googleRedirectUrl"`
		UIRedirectURL     string `yaml:"uiRedirectUrl"`
	} `yaml:"auth"`
}

// readFile parses the YAML config at path. An empty path yields an empty config.
// Secrets are only read from the environment.
func readFile(path string) (fileConfig, error) {
	var fc fileConfig
	if strings.TrimSpace(path) == "" {
		return fc, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fc, fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fc, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return fc, nil
}
