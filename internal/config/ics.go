package config

import (
	"fmt"
	"time"
)

type ICSConfig struct {
	CompanyName string `yaml:"company_name"`
	ProductName string `yaml:"product_name"`
	Version     string `yaml:"version"`
	Language    string `yaml:"language"`
	// UIDDomain is the right-hand side of generated event UIDs.
	UIDDomain string `yaml:"uid_domain"`
	// Strict rejects uploads without a readable DTSTART and DTEND.
	Strict          bool          `yaml:"strict"`
	DefaultDuration time.Duration `yaml:"default_duration"`
}

func (cfg *ICSConfig) BuildProdID() string {
	if cfg.Version != "" {
		return fmt.Sprintf("-//%s//%s %s//%s",
			cfg.CompanyName, cfg.ProductName, cfg.Version, cfg.Language)
	}
	return fmt.Sprintf("-//%s//%s//%s",
		cfg.CompanyName, cfg.ProductName, cfg.Language)
}
