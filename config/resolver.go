package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// ResolvedPaths is the concrete file set a generation run operates on.
type ResolvedPaths struct {
	Data     string
	Config   string
	Template string
}

// ResolvePaths derives the config and template file for an input data file.
//
// Config fallback chain: {stem}_bundle_config.json, {stem}.json,
// default.json. The template is taken from the config's _meta.template_name
// when present, else {stem}.xlsx, else the generic Invoice.xlsx.
func ResolvePaths(inputDataPath, templateDir, configDir string) (*ResolvedPaths, error) {
	stem := strings.TrimSuffix(filepath.Base(inputDataPath), filepath.Ext(inputDataPath))

	configPath := ""
	for _, candidate := range []string{
		filepath.Join(configDir, stem+"_bundle_config.json"),
		filepath.Join(configDir, stem+".json"),
		filepath.Join(configDir, "default.json"),
	} {
		if fileExists(candidate) {
			configPath = candidate
			break
		}
	}
	if configPath == "" {
		return nil, fmt.Errorf("no bundle config found for %q in %s", stem, configDir)
	}

	templatePath := ""
	if cfg, err := Load(configPath); err == nil && cfg.Meta.TemplateName != "" {
		templatePath = filepath.Join(templateDir, cfg.Meta.TemplateName)
	} else if err != nil {
		slog.Warn("Could not pre-read config for template name", "config", configPath, "error", err)
	}

	if templatePath == "" || !fileExists(templatePath) {
		templatePath = filepath.Join(templateDir, stem+".xlsx")
		if !fileExists(templatePath) {
			templatePath = filepath.Join(templateDir, "Invoice.xlsx")
		}
	}
	if !fileExists(templatePath) {
		return nil, fmt.Errorf("no template found for %q in %s", stem, templateDir)
	}

	return &ResolvedPaths{
		Data:     inputDataPath,
		Config:   configPath,
		Template: templatePath,
	}, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
