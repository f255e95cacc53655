package configuration

import (
	"fmt"
	"os"
	"strconv"

	"social-publisher/infrastructure/logger"

	"github.com/spf13/viper"
)

type Config struct {
	App         App         `json:"app"`
	Database    Database    `json:"database"`
	RedisClient RedisClient `json:"redisClient"`
	OAuth       OAuth       `json:"oauth"`
	OpenAI      OpenAI      `json:"openAI"`
	Scheduler   Scheduler   `json:"scheduler"`
	Pubsub      Pubsub      `json:"pubsub"`
	ServiceBus  ServiceBus  `json:"serviceBus"`
	Logger      Logger      `json:"logger"`
}

type App struct {
	Port        int    `json:"port"`
	SecretKey   string `json:"secretKey"`
	FrontendURL string `json:"frontendURL"`
	ServerURL   string `json:"serverURL"`
}

type Database struct {
	Mongo Db `json:"mongo"`
	Psql  Db `json:"psql"`
	MySql Db `json:"mysql"`
	Mssql Db `json:"mssql"`
}

type Db struct {
	Name     string `json:"name"`
	Host     string `json:"host"`
	Port     string `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
}

type RedisClient struct {
	Host     string `json:"host"`
	Port     string `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// OAuth holds third-party platform OAuth client credentials
type OAuth struct {
	Facebook OAuthClient `json:"facebook"`
	Twitter  OAuthClient `json:"twitter"`
	LinkedIn OAuthClient `json:"linkedin"`
}

type OAuthClient struct {
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
	RedirectURI  string `json:"redirectURI"`
}

type OpenAI struct {
	APIKey     string `json:"apiKey"`
	Model      string `json:"model"`
	ImageModel string `json:"imageModel"`
}

// Scheduler controls the publish tick. Timezone is the canonical zone used
// for every date/time comparison; it must never fall back to server local
// time silently.
type Scheduler struct {
	Timezone               string `json:"timezone"`
	PlatformTimeoutSeconds int    `json:"platformTimeoutSeconds"`
}

type Pubsub struct {
	ProjectID string `json:"projectID"`
	Topic     string `json:"topic"`
}

type ServiceBus struct {
	Namespace string `json:"namespace"`
	Queue     string `json:"queue"`
}

type Logger struct {
	Format string `json:"format"`
}

var C Config

func init() {
	LoadConfig()
	initDatabase(&C)
	initApp(&C)
	initScheduler(&C)
}

func LoadConfig() {
	name := getConfig()
	viper.SetConfigName(name)
	viper.SetConfigType("json")
	viper.AddConfigPath(".")
	viper.AddConfigPath("../")
	viper.AddConfigPath("../../")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			logger.GetLogger().Warn("Config file not found")
		} else {
			logger.GetLogger().WithField("error", err).Error("Error reading config file")
		}
	}

	logger.GetLogger().WithField("config", name).Info("Config set up successfully")
	if err := viper.Unmarshal(&C); err != nil {
		logger.GetLogger().WithField("error", err).Error("Viper unable to decode into struct")
	}
}

func getConfig() string {
	name := "config"
	env := os.Getenv("ENV")
	if env != "" {
		name = fmt.Sprintf("%s-%s", name, env)
	}
	return name
}

func initDatabase(C *Config) {
	if C.Database.Mongo.Host == "" {
		C.Database.Mongo.Host = os.Getenv("MONGO_HOST")
	}
	if C.Database.Mongo.Port == "" {
		if v := os.Getenv("MONGO_PORT"); v != "" {
			C.Database.Mongo.Port = v
		} else {
			C.Database.Mongo.Port = "27017"
		}
	}
	if C.Database.Mongo.Name == "" {
		if v := os.Getenv("MONGO_DB_NAME"); v != "" {
			C.Database.Mongo.Name = v
		} else {
			C.Database.Mongo.Name = "social_publisher"
		}
	}
	if C.Database.Mongo.User == "" {
		C.Database.Mongo.User = os.Getenv("MONGO_USER")
	}
	if C.Database.Mongo.Password == "" {
		C.Database.Mongo.Password = os.Getenv("MONGO_PASSWORD")
	}

	if C.Database.Psql.Name == "" {
		C.Database.Psql.Name = os.Getenv("DB_NAME")
	}
	if C.Database.Psql.Host == "" {
		C.Database.Psql.Host = os.Getenv("DB_HOST")
	}
	if C.Database.Psql.Password == "" {
		C.Database.Psql.Password = os.Getenv("DB_PASSWORD")
	}
	if C.Database.Psql.Port == "" {
		C.Database.Psql.Port = os.Getenv("DB_PORT")
	}
	if C.Database.Psql.User == "" {
		C.Database.Psql.User = os.Getenv("DB_USER")
	}

	// Optional MSSQL config via environment variables (Azure SQL in production)
	if v := os.Getenv("MSSQL_DB_NAME"); C.Database.Mssql.Name == "" && v != "" {
		C.Database.Mssql.Name = v
	}
	if v := os.Getenv("MSSQL_HOST"); C.Database.Mssql.Host == "" && v != "" {
		C.Database.Mssql.Host = v
	}
	if v := os.Getenv("MSSQL_USER"); C.Database.Mssql.User == "" && v != "" {
		C.Database.Mssql.User = v
	}
	if v := os.Getenv("MSSQL_PASSWORD"); C.Database.Mssql.Password == "" && v != "" {
		C.Database.Mssql.Password = v
	}
	if C.Database.Mssql.Port == "" {
		if v := os.Getenv("MSSQL_PORT"); v != "" {
			C.Database.Mssql.Port = v
		} else {
			C.Database.Mssql.Port = "1433"
		}
	}

	if C.Database.MySql.Host == "" {
		C.Database.MySql.Host = os.Getenv("MYSQL_HOST")
	}
	if C.Database.MySql.Port == "" {
		if v := os.Getenv("MYSQL_PORT"); v != "" {
			C.Database.MySql.Port = v
		} else {
			C.Database.MySql.Port = "3306"
		}
	}
	if C.Database.MySql.Name == "" {
		C.Database.MySql.Name = os.Getenv("MYSQL_DB_NAME")
	}
	if C.Database.MySql.User == "" {
		C.Database.MySql.User = os.Getenv("MYSQL_USER")
	}
	if C.Database.MySql.Password == "" {
		C.Database.MySql.Password = os.Getenv("MYSQL_PASSWORD")
	}
}

func initApp(C *Config) {
	// Prefer SECRET_KEY from environment for JWT verification; overrides config file when provided
	if v := os.Getenv("SECRET_KEY"); v != "" {
		C.App.SecretKey = v
	}
	// Port resolution order (env overrides config): APP_PORT -> PORT -> config -> default 10002
	if v := os.Getenv("APP_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			C.App.Port = p
		}
	} else if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			C.App.Port = p
		}
	}
	if C.App.Port == 0 {
		C.App.Port = 10002
	}
	if v := os.Getenv("FRONTEND_URL"); C.App.FrontendURL == "" && v != "" {
		C.App.FrontendURL = v
	}
	if v := os.Getenv("SERVER_URL"); C.App.ServerURL == "" && v != "" {
		C.App.ServerURL = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); C.OpenAI.APIKey == "" && v != "" {
		C.OpenAI.APIKey = v
	}
	if C.OpenAI.Model == "" {
		C.OpenAI.Model = "gpt-4o-mini"
	}
	if C.OpenAI.ImageModel == "" {
		C.OpenAI.ImageModel = "dall-e-3"
	}
	if C.App.SecretKey == "" {
		logger.GetLogger().Warn("App.SecretKey not set; JWT authentication will fail. Provide SECRET_KEY via environment.")
	}
}

func initScheduler(C *Config) {
	if v := os.Getenv("SCHEDULER_TIMEZONE"); v != "" {
		C.Scheduler.Timezone = v
	}
	// All date/time comparisons run in one canonical zone, IST unless
	// explicitly configured otherwise.
	if C.Scheduler.Timezone == "" {
		C.Scheduler.Timezone = "Asia/Kolkata"
	}
	if C.Scheduler.PlatformTimeoutSeconds == 0 {
		C.Scheduler.PlatformTimeoutSeconds = 60
	}
}
