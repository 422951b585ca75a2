package config

import (
	"os"
	"time"

	"github.com/go-yaml/yaml"
	"github.com/pkg/errors"
)

const tokenEnv = "CHATKIT_TOKEN"

type Config struct {
	API       API       `yaml:"api"`
	Realtime  Realtime  `yaml:"realtime"`
	Cache     Cache     `yaml:"cache"`
	Events    Events    `yaml:"events"`
	Inspector Inspector `yaml:"inspector"`
	Trace     Trace     `yaml:"trace"`
}

type API struct {
	URL   string `yaml:"url"`
	Token string `yaml:"token"`
}

type Realtime struct {
	Enable    bool          `yaml:"enable"`
	Heartbeat time.Duration `yaml:"heartbeat"`
}

type Cache struct {
	TTL           time.Duration `yaml:"ttl"`
	MemcachedAddr string        `yaml:"memcachedAddr"` // empty keeps responses in process
}

type Events struct {
	RedisAddr     string `yaml:"redisAddr"`
	RedisPassword string `yaml:"redisPassword"`
	RedisDB       int    `yaml:"redisDB"`
	Channel       string `yaml:"channel"`
}

type Inspector struct {
	Listen string `yaml:"listen"`
	Token  string `yaml:"token"` // empty leaves the inspector open
}

type Trace struct {
	Enable   bool   `yaml:"enable"`
	Endpoint string `yaml:"endpoint"`
}

func Load(path string) (Config, error) {

	file, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer file.Close()

	var config Config
	err = yaml.NewDecoder(file).Decode(&config)
	if err != nil {
		return Config{}, errors.Wrapf(err, "failed to parse %s", path)
	}

	if token := os.Getenv(tokenEnv); token != "" {
		config.API.Token = token
	}

	config.applyDefaults()

	if config.API.URL == "" {
		return Config{}, errors.New("api.url is required")
	}

	return config, nil
}

func (c *Config) applyDefaults() {
	if c.Realtime.Heartbeat <= 0 {
		c.Realtime.Heartbeat = 30 * time.Second
	}
	if c.Cache.TTL <= 0 {
		c.Cache.TTL = 10 * time.Minute
	}
	if c.Events.Channel == "" {
		c.Events.Channel = "chatkit:events"
	}
	if c.Inspector.Listen == "" {
		c.Inspector.Listen = ":8000"
	}
}
