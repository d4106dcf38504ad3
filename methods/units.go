package methods

import (
	"fmt"
	"math"

	"github.com/GrainArc/LandMap/geokernel"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// UnitSymbols 面积单位缩写
var UnitSymbols = map[geokernel.AreaUnit]string{
	geokernel.Hectares:     "ha",
	geokernel.Acres:        "ac",
	geokernel.SquareMeters: "m²",
}

// Round2 保留两位小数
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// HectaresTo 公顷换算为目标单位
func HectaresTo(ha float64, unit geokernel.AreaUnit) (float64, error) {
	return geokernel.ConvertArea(ha*10000, unit)
}

// Percentage 占地产面积的百分比，地产面积为0时返回0
func Percentage(part, total float64) float64 {
	if total <= 0 {
		return 0
	}
	return Round2(part / total * 100)
}

// FormatArea 按地区格式化面积，如 pt-BR 下 "1.234,56 ha"
func FormatArea(value float64, unit geokernel.AreaUnit, locale string) string {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.BrazilianPortuguese
	}
	p := message.NewPrinter(tag)
	symbol, ok := UnitSymbols[unit]
	if !ok {
		symbol = string(unit)
	}
	return p.Sprintf("%.2f %s", value, symbol)
}

// FormatLength 按地区格式化长度
func FormatLength(meters float64, locale string) string {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.BrazilianPortuguese
	}
	p := message.NewPrinter(tag)
	if meters >= 1000 {
		return p.Sprintf("%.2f km", meters/1000)
	}
	return p.Sprintf("%.2f m", meters)
}

// ToDMS 十进制度转度分秒，lat 为 true 时使用 N/S
func ToDMS(deg float64, lat bool) string {
	hemi := "E"
	switch {
	case lat && deg < 0:
		hemi = "S"
	case lat:
		hemi = "N"
	case deg < 0:
		hemi = "W"
	}
	abs := math.Abs(deg)
	d := math.Floor(abs)
	minutes := (abs - d) * 60
	m := math.Floor(minutes)
	s := (minutes - m) * 60
	// 四舍五入后秒数进位
	if math.Round(s*100)/100 >= 60 {
		s = 0
		m++
	}
	if m >= 60 {
		m = 0
		d++
	}
	return fmt.Sprintf("%d°%02d'%05.2f\"%s", int(d), int(m), s, hemi)
}
