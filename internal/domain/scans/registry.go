package scans

// Tool names. The adapter set is closed; there is no plugin mechanism.
const (
	ToolSublist3r ToolName = "sublist3r"
	ToolHttpx     ToolName = "httpx"
	ToolGobuster  ToolName = "gobuster"
	ToolZAP       ToolName = "zap"
	ToolNuclei    ToolName = "nuclei"
	ToolSQLMap    ToolName = "sqlmap"
	ToolSemgrep   ToolName = "semgrep"
	ToolASan      ToolName = "addresssanitizer"
	ToolGhauri    ToolName = "ghauri"
)

type ToolName string

// ToolInfo is the immutable registry entry for one adapter. The Tool rows in
// the database are a cache populated idempotently from this table.
type ToolInfo struct {
	DisplayName string
	Image       string
	Category    string
}

var Registry = map[ToolName]ToolInfo{
	ToolSublist3r: {DisplayName: "Sublist3r", Image: "security-tools:sublist3r", Category: "Discovery"},
	ToolHttpx:     {DisplayName: "Httpx", Image: "security-tools:httpx", Category: "Discovery"},
	ToolGobuster:  {DisplayName: "Gobuster", Image: "security-tools:gobuster", Category: "Discovery"},
	ToolZAP:       {DisplayName: "OWASP ZAP", Image: "security-tools:zap", Category: "Web Scanning"},
	ToolNuclei:    {DisplayName: "Nuclei", Image: "security-tools:nuclei", Category: "Web Scanning"},
	ToolSQLMap:    {DisplayName: "SQLMap", Image: "security-tools:sqlmap", Category: "Injection"},
	ToolSemgrep:   {DisplayName: "Semgrep", Image: "security-tools:semgrep", Category: "Static Analysis"},
	ToolASan:      {DisplayName: "AddressSanitizer", Image: "security-tools:addresssanitizer", Category: "Memory Safety"},
	ToolGhauri:    {DisplayName: "Ghauri", Image: "security-tools:ghauri", Category: "Injection"},
}

// StageSpec binds one pipeline position to one tool. The mappings below are
// fixed contract data, not runtime configuration.
type StageSpec struct {
	Number int
	Name   string
	Tool   ToolName
}

var FullScanStages = []StageSpec{
	{1, "Stage 1: Subdomain Enumeration", ToolSublist3r},
	{2, "Stage 2: HTTP Service Detection", ToolHttpx},
	{3, "Stage 3: Directory Discovery", ToolGobuster},
	{4, "Stage 4: Web Application Scanning", ToolZAP},
	{5, "Stage 5: Template-Based Scanning", ToolNuclei},
	{6, "Stage 6: SQL Injection Testing", ToolSQLMap},
}

var LocalhostStages = []StageSpec{
	{1, "Localhost Testing: AddressSanitizer Memory Safety Analysis", ToolASan},
	{2, "Localhost Testing: Ghauri SQL Injection Testing", ToolGhauri},
}
