package config

import (
	"encoding/json"
	"log/slog"
	"os"
)

// Load decodes the JSON file at filePath into config. A simulation cannot
// run with a broken configuration, so any failure is fatal.
func Load(filePath string, config any) {
	configFile, err := os.Open(filePath)
	if err != nil {
		slog.Error("could not open configuration file",
			slog.Attr{Key: "filePath", Value: slog.StringValue(filePath)},
			slog.Attr{Key: "error", Value: slog.StringValue(err.Error())},
		)
		panic(err)
	}
	defer func() {
		_ = configFile.Close()
	}()

	jsonParser := json.NewDecoder(configFile)
	err = jsonParser.Decode(config)
	if err != nil {
		slog.Error("could not decode configuration file",
			slog.Attr{Key: "filePath", Value: slog.StringValue(filePath)},
			slog.Attr{Key: "error", Value: slog.StringValue(err.Error())},
		)
		panic(err)
	}
}
