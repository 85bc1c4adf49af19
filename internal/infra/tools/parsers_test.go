package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNucleiJSONL(t *testing.T) {
	stdout := `[WRN] some warning line
{"info":{"name":"Apache Version Disclosure","severity":"low","description":"Server header leaks version."},"matched-at":"http://example.com:80","curl-command":"curl -X GET http://example.com"}
not json at all
{"info":{"severity":"high"},"matched-at":"http://example.com/admin"}
`
	matches := parseNucleiJSONL(stdout)
	require.Len(t, matches, 2)

	assert.Equal(t, "Apache Version Disclosure", matches[0].Name)
	assert.Equal(t, "low", matches[0].Severity)
	assert.Equal(t, "http://example.com:80", matches[0].MatchedAt)
	assert.Equal(t, "curl -X GET http://example.com", matches[0].Evidence)

	// nameless matches get a generic name
	assert.Equal(t, "Vulnerability", matches[1].Name)
	assert.Equal(t, "high", matches[1].Severity)
}

func TestParseSemgrepJSONInNoise(t *testing.T) {
	stdout := `scanning 2 files...
{"results":[
 {"check_id":"c.lang.security.insecure-use-strcpy-fn","path":"/source/vulnerable.c",
  "start":{"line":6,"col":5},
  "extra":{"message":"strcpy does not bound-check","severity":"ERROR","metadata":{"category":"security"}}},
 {"check_id":"","path":"/source/vulnerable.py","start":{"line":3,"col":5},"extra":{}}
],"errors":[]}
ran 1056 rules`
	findings := parseSemgrepJSON(stdout)
	require.Len(t, findings, 2)

	assert.Equal(t, "c.lang.security.insecure-use-strcpy-fn", findings[0].RuleID)
	assert.Equal(t, "strcpy does not bound-check", findings[0].Message)
	assert.Equal(t, "ERROR", findings[0].Severity)
	assert.Equal(t, 6, findings[0].Line)

	// empty fields fall back to defaults
	assert.Equal(t, "unknown", findings[1].RuleID)
	assert.Equal(t, "Security issue detected", findings[1].Message)
	assert.Equal(t, "INFO", findings[1].Severity)
	assert.Equal(t, "security", findings[1].Category)
}

func TestParseSemgrepJSONAbsent(t *testing.T) {
	assert.Nil(t, parseSemgrepJSON("no json here"))
	assert.Nil(t, parseSemgrepJSON(""))
}

func TestParseASanBlocks(t *testing.T) {
	output := `compiling demo...
==7==ERROR: AddressSanitizer: stack-buffer-overflow on address 0x7ffd
WRITE of size 17 at 0x7ffd thread T0
    #0 0x4011b6 in buffer_overflow_vuln

==7==ERROR: AddressSanitizer: heap-use-after-free on address 0x602
READ of size 4
`
	errors := parseASanBlocks(output)
	require.Len(t, errors, 2)
	assert.Contains(t, errors[0].Raw, "stack-buffer-overflow")
	assert.Contains(t, errors[0].Raw, "buffer_overflow_vuln")
	assert.Contains(t, errors[1].Raw, "heap-use-after-free")
}

func TestParseASanBlocksClean(t *testing.T) {
	assert.Nil(t, parseASanBlocks("all tests passed\nexit 0"))
}

func TestGhauriVulnerable(t *testing.T) {
	assert.True(t, ghauriVulnerable("Parameter 'id' is vulnerable to blind SQLi"))
	assert.True(t, ghauriVulnerable("Ghauri identified the following injection point(s)"))
	assert.False(t, ghauriVulnerable("no injection found"))
}

func TestParseGhauriDatabases(t *testing.T) {
	output := `[INFO] fetching database names
available databases [3]:
[*] information_schema
[*] mysql
[*] acme_app
`
	dbs := parseGhauriDatabases(output)
	assert.Equal(t, []string{"information_schema", "mysql", "acme_app"}, dbs)

	assert.Nil(t, parseGhauriDatabases("nothing enumerated"))
}

func TestParseSubdomains(t *testing.T) {
	stdout := `
          ____        _     _ _     _   _____
[-] Enumerating subdomains now for example.com
[-] Searching now in Baidu..
www.example.com
mail.example.com
Total Unique Subdomains Found: 2
other-domain.net
`
	subs := parseSubdomains(stdout, "example.com")
	assert.Equal(t, []string{"www.example.com", "mail.example.com"}, subs)
}

func TestRewriteLocal(t *testing.T) {
	u, mode := rewriteLocal("http://localhost:8000/login")
	assert.Equal(t, "http://host.docker.internal:8000/login", u)
	assert.Equal(t, "bridge", mode)

	u, mode = rewriteLocal("http://127.0.0.1/app")
	assert.Equal(t, "http://host.docker.internal/app", u)
	assert.Equal(t, "bridge", mode)

	u, mode = rewriteLocal("https://example.com")
	assert.Equal(t, "https://example.com", u)
	assert.Equal(t, "", mode)
}

func TestDomainOf(t *testing.T) {
	assert.Equal(t, "example.com", domainOf("https://example.com/path?q=1"))
	assert.Equal(t, "example.com", domainOf("example.com:8080/x"))
	assert.Equal(t, "testphp.vulnweb.com", domainOf("http://testphp.vulnweb.com"))
}
