package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glinharesb/rsa-sign-demo/internal/audit"
	"github.com/glinharesb/rsa-sign-demo/internal/demo"
)

func TestRunInvalidScheme(t *testing.T) {
	t.Setenv("RSA_DEMO_SCHEME", "RSA-RAW")

	var out bytes.Buffer
	assert.Equal(t, exitConfig, run(&out))
	assert.Empty(t, out.String(), "no stage runs on bad configuration")
}

func TestRunInvalidHash(t *testing.T) {
	t.Setenv("RSA_DEMO_HASH", "MD5")

	var out bytes.Buffer
	assert.Equal(t, exitConfig, run(&out))
}

func TestRunKeyGenFailureWritesJournal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.jsonl")
	t.Setenv("RSA_DEMO_EXPONENT", "3")
	t.Setenv("RSA_DEMO_AUDIT_FILE", path)

	var out bytes.Buffer
	assert.Equal(t, int(demo.CodeKeyGenFailed), run(&out))
	assert.Contains(t, out.String(), "Generate RSA keypair... failed")

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var got []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var e audit.Entry
		require.NoError(t, json.Unmarshal(sc.Bytes(), &e))
		got = append(got, e.Stage+":"+e.Status)
	}
	require.NoError(t, sc.Err())
	assert.Equal(t, []string{"seed:OK", "keygen:FAILED", "cleanup:OK"}, got)
}

func TestRunEndToEnd(t *testing.T) {
	var out bytes.Buffer
	assert.Equal(t, 0, run(&out))
	assert.Contains(t, out.String(), "RSA RSASSA-PKCS1-V1_5 verify... ok")
}

func TestExitStatusStaysNonZero(t *testing.T) {
	cases := map[int]int{
		0:                          0,
		1:                          1,
		exitConfig:                 exitConfig,
		int(demo.CodeSeedFailed):   0xcc,
		int(demo.CodeKeyGenFailed): 0x80,
		int(demo.CodeSignFailed):   1,
		int(demo.CodeVerifyFailed): 0x80,
	}
	for code, want := range cases {
		got := exitStatus(code)
		assert.Equal(t, want, got, "code %d", code)
		if code != 0 {
			assert.NotZero(t, got&0xff, "code %d must not look like success", code)
		}
	}
}
