package config

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	XMLName    xml.Name `xml:"config" yaml:"-"`
	MainRouter string   `xml:"MainRouter" yaml:"mainRouter" validate:"required"`
	DBType     string   `xml:"dbtype" yaml:"dbType" validate:"oneof=sqlite postgres mysql"`
	Host       string   `xml:"host" yaml:"host" validate:"required_unless=DBType sqlite"`
	Port       string   `xml:"port" yaml:"port" validate:"required_unless=DBType sqlite"`
	Username   string   `xml:"user" yaml:"user"`
	Password   string   `xml:"password" yaml:"password"`
	Dbname     string   `xml:"dbname" yaml:"dbname" validate:"required_unless=DBType sqlite"`
	SqlitePath string   `xml:"sqlitePath" yaml:"sqlitePath" validate:"required_if=DBType sqlite"`
	AreaUnit   string   `xml:"areaUnit" yaml:"areaUnit" validate:"oneof=hectares acres square-meters"`
	Locale     string   `xml:"locale" yaml:"locale" validate:"bcp47_language_tag"`
	GinMode    string   `xml:"ginMode" yaml:"ginMode" validate:"oneof=debug release test"`
	// StrictInvariants 每次提交后执行一致性检查
	StrictInvariants bool `xml:"strictInvariants" yaml:"strictInvariants"`
}

var validate = validator.New()

// Default 默认配置：本地 sqlite，公顷，巴西葡萄牙语格式
func Default() Config {
	return Config{
		MainRouter: ":8426",
		DBType:     "sqlite",
		SqlitePath: "landmap.db",
		AreaUnit:   "hectares",
		Locale:     "pt-BR",
		GinMode:    "release",
	}
}

// LoadConfig 按扩展名读取 XML 或 YAML 配置，缺省字段使用默认值
func LoadConfig(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	case ".xml", "":
		err = xml.Unmarshal(data, &cfg)
	default:
		return cfg, fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}
	if err != nil {
		return cfg, fmt.Errorf("decode config %s: %w", path, err)
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyDefaults 解码后空字符串字段回填默认值
func (c *Config) applyDefaults() {
	d := Default()
	fill := func(v *string, def string) {
		if strings.TrimSpace(*v) == "" {
			*v = def
		}
	}
	fill(&c.MainRouter, d.MainRouter)
	fill(&c.DBType, d.DBType)
	fill(&c.AreaUnit, d.AreaUnit)
	fill(&c.Locale, d.Locale)
	fill(&c.GinMode, d.GinMode)
	if c.DBType == "sqlite" {
		fill(&c.SqlitePath, d.SqlitePath)
	}
}

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// DSN postgres / mysql 连接串
func (c Config) DSN() string {
	switch c.DBType {
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC", c.Username, c.Password, c.Host, c.Port, c.Dbname)
	case "postgres":
		return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC", c.Host, c.Username, c.Password, c.Dbname, c.Port)
	}
	return c.SqlitePath
}
