package cli_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vasiliy-maslov/shop-service/internal/cli"
)

func memoryEnv(t *testing.T) {
	t.Helper()
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("CONFIG_PATH", "")
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := cli.NewRootCmdForTest()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append(args, "--env-file", filepath.Join(t.TempDir(), "missing.env")))
	err := root.Execute()
	return out.String(), err
}

func TestMigrate_RejectsUnknownDirection(t *testing.T) {
	memoryEnv(t)

	_, err := run(t, "migrate", "sideways")
	require.Error(t, err)

	_, err = run(t, "migrate")
	require.Error(t, err)
}

func TestMigrate_MemoryIsNoop(t *testing.T) {
	memoryEnv(t)

	_, err := run(t, "migrate", "up")
	require.NoError(t, err)
}

func TestSeed_BuiltinFixture(t *testing.T) {
	memoryEnv(t)

	out, err := run(t, "seed")
	require.NoError(t, err)
	assert.Contains(t, out, "Seeded 3 users and 4 products into memory")
}

func TestSeed_CustomFixture(t *testing.T) {
	memoryEnv(t)

	path := filepath.Join(t.TempDir(), "fixture.yaml")
	fixture := `
users:
  - email: ops@example.com
    name: Ops
    password: Password123
    role: admin
products:
  - name: Linen Shirt
    description: Breathable linen shirt
    price: "45.00"
    category: Male
    stock_quantity: 12
`
	require.NoError(t, os.WriteFile(path, []byte(fixture), 0o600))

	out, err := run(t, "seed", "--file", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Seeded 1 users and 1 products into memory")
}

func TestConfig_MissingSecret(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("CONFIG_PATH", "")

	_, err := run(t, "seed")
	require.ErrorContains(t, err, "JWT_SECRET")
}
