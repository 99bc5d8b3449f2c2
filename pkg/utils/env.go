package utils

import (
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// LoadConfig reads the .env file (if present) and primes viper so flags and
// environment variables resolve through the same lookup path.
func LoadConfig(path string) {
	_ = godotenv.Load()

	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AutomaticEnv()

	_ = viper.ReadInConfig()
}
