package cmd

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/interview-proctor/internal/config"
	"github.com/spigell/interview-proctor/internal/logger"
)

// setup builds the logger and configuration every command starts from.
func setup() (*zap.Logger, *config.Config) {
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	cfg, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Debug("starting the interview-proctor", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(redacted(cfg), "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	return logger, cfg
}

// redacted returns a copy of cfg safe to log.
func redacted(cfg *config.Config) config.Config {
	out := *cfg
	if cfg.Providers != nil {
		providers := *cfg.Providers
		if providers.Gemini != nil {
			gc := *providers.Gemini
			gc.APIKey = mask(gc.APIKey)
			providers.Gemini = &gc
		}
		if providers.Whisper != nil {
			wc := *providers.Whisper
			wc.APIKey = mask(wc.APIKey)
			providers.Whisper = &wc
		}
		out.Providers = &providers
	}
	return out
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	return "***"
}
