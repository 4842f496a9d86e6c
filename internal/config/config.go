package config

import (
	"fmt"
	"github.com/ilyakaznacheev/cleanenv"
	"log"
	"sync"
)

type Listen struct {
	BindIp string `yaml:"bind_ip" env-default:"0.0.0.0"`
	Port   string `yaml:"port" env-default:"8080"`
}

type MongoConfig struct {
	Enabled  bool   `yaml:"enabled" env-default:"false"`
	Host     string `yaml:"host" env-default:"localhost"`
	Port     string `yaml:"port" env-default:"27017"`
	User     string `yaml:"user" env-default:""`
	Password string `yaml:"password" env-default:""`
	Database string `yaml:"database" env-default:"guildsync"`
}

type DiscordConfig struct {
	Token         string `yaml:"token" env:"DISCORD_TOKEN" env-default:""`
	Prefix        string `yaml:"prefix" env-default:"!"`
	OpsChannelID  string `yaml:"ops_channel_id" env-default:""`
	MemberTimeout int    `yaml:"member_timeout" env-default:"15"`
}

type DashboardConfig struct {
	Enabled bool   `yaml:"enabled" env-default:"true"`
	Token   string `yaml:"token" env:"DASHBOARD_TOKEN" env-default:""`
}

type AnnounceConfig struct {
	Timezone     string `yaml:"timezone" env-default:"Asia/Kolkata"`
	BirthdayCron string `yaml:"birthday_cron" env-default:"0 0 * * *"`
	EventsCron   string `yaml:"events_cron" env-default:"0 8 * * *"`
}

type AIConfig struct {
	Enabled  bool   `yaml:"enabled" env-default:"false"`
	APIKey   string `yaml:"api_key" env:"AI_API_KEY" env-default:""`
	BaseURL  string `yaml:"base_url" env-default:"https://api.groq.com/openai/v1"`
	Model    string `yaml:"model" env-default:"llama3-70b-8192"`
	Persona  string `yaml:"persona" env-default:"You are a friendly, upbeat community assistant. Keep replies short, warm and conversational."`
	MaxTurns int    `yaml:"max_turns" env-default:"20"`
}

type Config struct {
	Discord   DiscordConfig   `yaml:"discord"`
	Mongo     MongoConfig     `yaml:"mongo"`
	Dashboard DashboardConfig `yaml:"dashboard"`
	Announce  AnnounceConfig  `yaml:"announce"`
	AI        AIConfig        `yaml:"ai"`
	Listen    Listen          `yaml:"listen"`
	Env       string          `yaml:"env" env-default:"local"`
}

var instance *Config
var once sync.Once

func MustLoad(path string) *Config {
	var err error
	once.Do(func() {
		instance = &Config{}
		if err = cleanenv.ReadConfig(path, instance); err != nil {
			desc, _ := cleanenv.GetDescription(instance, nil)
			err = fmt.Errorf("config: %s; %s", err, desc)
			instance = nil
			log.Fatal(err)
		}
	})
	return instance
}
