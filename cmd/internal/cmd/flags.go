package cmd

import (
	"github.com/consultant-1379/am-package-manager/internal/configuration"
)

const (
	// ConfigFlag Flag to specify a configuration file instead of the default locations.
	ConfigFlag = configuration.ConfigFlag
	// TempFolderFlag Flag to specify a custom temporary folder path for archive extraction.
	TempFolderFlag = configuration.KeyTempFolder
)

// Flags shared by all product report commands.
const (
	ProductReportFlag       = "product-report"
	ProductReportDefault    = "out.yaml"
	DisableHelmTemplateFlag = "disable-helm-template"
	ValuesFlag              = "values"
	SetFlag                 = "set"
	HelmDebugFlag           = "helm-debug"
	HelmCommandFlag         = configuration.KeyHelmCommand
	DockerConfigFlag        = configuration.KeyDockerConfig
	ConcurrencyLimitFlag    = configuration.KeyConcurrencyLimit
	PlainHTTPFlag           = configuration.KeyPlainHTTP
	SummaryFlag             = "summary"
)
