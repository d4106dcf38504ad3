package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfig_XML(t *testing.T) {
	path := writeFile(t, "config.xml", `<config>
	<MainRouter>:9000</MainRouter>
	<dbtype>postgres</dbtype>
	<host>10.0.4.10</host>
	<port>5432</port>
	<user>postgres</user>
	<password>secret</password>
	<dbname>landmap</dbname>
	<strictInvariants>true</strictInvariants>
</config>`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.MainRouter)
	assert.Equal(t, "hectares", cfg.AreaUnit)
	assert.Equal(t, "pt-BR", cfg.Locale)
	assert.True(t, cfg.StrictInvariants)
	assert.Equal(t, "host=10.0.4.10 user=postgres password=secret dbname=landmap port=5432 sslmode=disable TimeZone=UTC", cfg.DSN())
}

func TestLoadConfig_YAML(t *testing.T) {
	path := writeFile(t, "config.yaml", `
mainRouter: ":8080"
dbType: mysql
host: db
port: "3306"
user: root
password: pw
dbname: land
areaUnit: acres
locale: en-US
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "acres", cfg.AreaUnit)
	assert.Equal(t, "root:pw@tcp(db:3306)/land?charset=utf8mb4&parseTime=True&loc=UTC", cfg.DSN())
}

func TestLoadConfig_SqliteDefaults(t *testing.T) {
	path := writeFile(t, "config.yml", "ginMode: debug\n")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.DBType)
	assert.Equal(t, "landmap.db", cfg.SqlitePath)
	assert.Equal(t, "landmap.db", cfg.DSN())
}

func TestLoadConfig_Invalid(t *testing.T) {
	cases := map[string]string{
		"unknown unit":     "areaUnit: furlongs\n",
		"unknown database": "dbType: oracle\n",
		"postgres no host": "dbType: postgres\nport: \"5432\"\ndbname: land\n",
		"bad locale":       "locale: \"not a tag!\"\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadConfig(writeFile(t, "config.yaml", body))
			assert.Error(t, err)
		})
	}

	_, err := LoadConfig(writeFile(t, "config.toml", ""))
	assert.Error(t, err)
	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.xml"))
	assert.Error(t, err)
}

func TestOpenDatabase_Sqlite(t *testing.T) {
	cfg := Default()
	cfg.SqlitePath = filepath.Join(t.TempDir(), "data", "land.db")

	db, err := OpenDatabase(cfg)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Ping())
	require.NoError(t, sqlDB.Close())

	cfg.DBType = "oracle"
	_, err = OpenDatabase(cfg)
	assert.Error(t, err)
}
