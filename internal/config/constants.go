package config

import "time"

// Application constants
const (
	AppName    = "pricing"
	AppVersion = "1.0.0"

	// DefaultMaxPasses caps the composition solver
	DefaultMaxPasses = 15

	// Output artifacts, written to the output directory
	ServicesCSV  = "tabela_servicos_export.csv"
	InsumosCSV   = "tabela_insumos_export.csv"
	ExportXLSX   = "orcamento_export.xlsx"
	ManifestJSON = "export_manifest.json"

	// WebSocket keepalive
	WebSocketPingPeriod = 30 * time.Second
	WebSocketPongWait   = 60 * time.Second

	// Endpoints
	HealthEndpoint    = "/api/health"
	MetricsEndpoint   = "/metrics"
	WebSocketEndpoint = "/ws"
)

// Discovery patterns used when a configured source file is absent
var (
	POPatterns     = []string{"PO*.xlsx"}
	SINAPIPatterns = []string{"SINAPI*.xlsx"}
	CDHUPatterns   = []string{"*CDHU*.xlsx"}
	SICROPatterns  = []string{"*Relat*Anal*Composi*.xlsx", "SICRO*.xlsx"}
)
