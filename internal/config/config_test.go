package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harentsoaR/armline-api/internal/models"
)

func TestLoad_Defaults(t *testing.T) {
	c, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, 8080, c.Port)
	assert.Equal(t, StoreMongo, c.StoreDriver)
	assert.Equal(t, 24*time.Hour, c.TokenTTL)
	assert.Equal(t, ImageHostImgBB, c.ImageHost)
	require.Len(t, c.Agencies, 3)
	assert.Equal(t, "DSWD", c.Agencies[0].Code)
	assert.Equal(t, "Philippine National Police", c.Agencies[1].Label)
	assert.Equal(t, []string{"DSWD", "PNP", "DepEd"}, c.UnreachableAgencies())
	assert.Empty(t, c.TrustedProxies)
	assert.ErrorContains(t, c.Validate(), "JWT_SECRET")
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("API_PORT", "9000")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("TOKEN_TTL", "2h")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.1, 172.16.0.0/12")
	t.Setenv("ESCALATION_AGENCIES", "PNP=desk@pnp.example|Philippine National Police;DSWD=")
	t.Setenv("PUBLIC_BASE_URL", "https://armline.example/")
	t.Setenv("EMAILJS_SERVICE_ID", "svc")
	t.Setenv("EMAILJS_TEMPLATE_ESCALATION", "tpl")

	c, err := Load("", nil)
	require.NoError(t, err)
	require.NoError(t, c.Validate())

	assert.Equal(t, 9000, c.Port)
	assert.Equal(t, 2*time.Hour, c.TokenTTL)
	assert.Equal(t, StoreMemory, c.StoreDriver)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, c.AllowedOrigins)
	assert.Equal(t, []string{"10.0.0.1", "172.16.0.0/12"}, c.TrustedProxies)
	assert.Equal(t, []string{"DSWD"}, c.UnreachableAgencies())
	assert.Equal(t, "https://armline.example", c.PublicBaseURL)
	assert.Equal(t, "svc", c.Email().ServiceID)
	assert.Equal(t, "tpl", c.Email().Templates.Escalation)
}

func TestLoad_ConfigFileAndFlag(t *testing.T) {
	path := filepath.Join(t.TempDir(), "armline.yaml")
	require.NoError(t, os.WriteFile(path, []byte("jwt_secret: from-file\nimage_host: s3\ns3_bucket: evidence\n"), 0o600))

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Bool("dev", false, "")
	require.NoError(t, flags.Parse([]string{"--dev"}))

	c, err := Load(path, flags)
	require.NoError(t, err)
	assert.Equal(t, "from-file", c.JWTSecret)
	assert.True(t, c.DevMode)
	assert.Equal(t, "evidence", c.S3().Bucket)
	assert.NoError(t, c.Validate())
}

func TestValidate(t *testing.T) {
	base := Config{JWTSecret: "x", StoreDriver: StoreMongo, ImageHost: ImageHostImgBB, TokenTTL: time.Hour}
	require.NoError(t, base.Validate())

	c := base
	c.StoreDriver = "postgres"
	assert.Error(t, c.Validate())

	c = base
	c.ImageHost = ImageHostS3
	assert.ErrorContains(t, c.Validate(), "S3_BUCKET")

	c = base
	c.TokenTTL = 0
	assert.Error(t, c.Validate())

	c = base
	c.TrustedProxies = []string{"10.0.0.1", "192.168.0.0/16"}
	assert.NoError(t, c.Validate())
	c.TrustedProxies = []string{"proxy.internal"}
	assert.ErrorContains(t, c.Validate(), "TRUSTED_PROXIES")
}

func TestParseAgencies(t *testing.T) {
	got, err := ParseAgencies(" PNP=desk@pnp.example|Philippine National Police ; DSWD=ops@dswd.example ;")
	require.NoError(t, err)
	assert.Equal(t, []models.Agency{
		{Code: "PNP", Email: "desk@pnp.example", Label: "Philippine National Police"},
		{Code: "DSWD", Email: "ops@dswd.example", Label: "DSWD"},
	}, got)

	_, err = ParseAgencies("nocode")
	assert.Error(t, err)
	_, err = ParseAgencies("PNP=a;PNP=b")
	assert.Error(t, err)
}
