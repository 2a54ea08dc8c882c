// Package gpx кодирует и декодирует GPX 1.1 файлы circuits.
//
// Идентификатор circuit встраивается в трёх местах сразу
// (author/name, keywords и исторически desc): сторонние GPX-редакторы
// вырезают часть метаданных, но обычно не все три поля. Это контракт
// совместимости, а не избыточность.
package gpx

import (
	"encoding/xml"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Ошибки декодирования
var (
	ErrNoTrackPoints = errors.New("no track points found in GPX")
	ErrMalformed     = errors.New("malformed GPX document")
)

// markerPattern - формат встраивания идентификатора: [HW-ID:<id>]
var markerPattern = regexp.MustCompile(`\[HW-ID:([^\]]+)\]`)

// Marker форматирует маркер идентификатора для встраивания
func Marker(circuitID string) string {
	return fmt.Sprintf("[HW-ID:%s]", circuitID)
}

// Waypoint - точка интереса в GPX документе
type Waypoint struct {
	Lat  float64
	Lon  float64
	Name string
	Desc string
	Link string
}

// Document - всё, что нужно для кодирования circuit в GPX
type Document struct {
	Name      string
	CircuitID string
	Waypoints []Waypoint
	// Track - пары [lat, lon]: реальный трек circuit, либо
	// последовательность его POI как fallback
	Track [][2]float64
}

// Parsed - результат разбора произвольного GPX файла
type Parsed struct {
	Name      string
	Waypoints []Waypoint
	Track     [][2]float64
	// CircuitID - восстановленный из метаданных идентификатор,
	// "" если файл его не несёт
	CircuitID string
}

// EscapeXML экранирует спецсимволы XML. nil сериализуется в пустую
// строку - в выходном файле не должно быть литеральных "null".
func EscapeXML(v interface{}) string {
	if v == nil {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		s = fmt.Sprintf("%v", v)
	}

	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, `"`, "&quot;")
	s = strings.ReplaceAll(s, "'", "&apos;")
	return s
}

// Encode сериализует circuit в GPX 1.1 документ
func Encode(doc Document) []byte {
	var b strings.Builder
	marker := ""
	if doc.CircuitID != "" {
		marker = Marker(doc.CircuitID)
	}

	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	b.WriteString(`<gpx version="1.1" creator="Circuit Editor" xmlns="http://www.topografix.com/GPX/1/1">` + "\n")

	b.WriteString("  <metadata>\n")
	fmt.Fprintf(&b, "    <name>%s</name>\n", EscapeXML(doc.Name))
	fmt.Fprintf(&b, "    <desc>%s</desc>\n", EscapeXML(marker))
	b.WriteString("    <author>\n")
	fmt.Fprintf(&b, "      <name>%s</name>\n", EscapeXML(marker))
	b.WriteString("    </author>\n")
	fmt.Fprintf(&b, "    <keywords>%s</keywords>\n", EscapeXML(marker))
	b.WriteString("  </metadata>\n")

	for _, wpt := range doc.Waypoints {
		fmt.Fprintf(&b, "  <wpt lat=\"%.6f\" lon=\"%.6f\">\n", wpt.Lat, wpt.Lon)
		fmt.Fprintf(&b, "    <name>%s</name>\n", EscapeXML(wpt.Name))
		fmt.Fprintf(&b, "    <desc>%s</desc>\n", EscapeXML(wpt.Desc))
		if wpt.Link != "" {
			fmt.Fprintf(&b, "    <link href=\"%s\"/>\n", EscapeXML(wpt.Link))
		}
		b.WriteString("  </wpt>\n")
	}

	b.WriteString("  <trk>\n")
	fmt.Fprintf(&b, "    <name>%s</name>\n", EscapeXML(doc.Name))
	b.WriteString("    <trkseg>\n")
	for _, pt := range doc.Track {
		fmt.Fprintf(&b, "      <trkpt lat=\"%.6f\" lon=\"%.6f\"></trkpt>\n", pt[0], pt[1])
	}
	b.WriteString("    </trkseg>\n")
	b.WriteString("  </trk>\n")
	b.WriteString("</gpx>\n")

	return []byte(b.String())
}

// XML-схема для разбора (только нужные поля)
type gpxFile struct {
	XMLName  xml.Name    `xml:"gpx"`
	Metadata gpxMetadata `xml:"metadata"`
	Wpts     []gpxWpt    `xml:"wpt"`
	Trks     []gpxTrk    `xml:"trk"`
}

type gpxMetadata struct {
	Name     string    `xml:"name"`
	Desc     string    `xml:"desc"`
	Author   gpxAuthor `xml:"author"`
	Keywords string    `xml:"keywords"`
}

type gpxAuthor struct {
	Name string `xml:"name"`
}

type gpxWpt struct {
	Lat  float64 `xml:"lat,attr"`
	Lon  float64 `xml:"lon,attr"`
	Name string  `xml:"name"`
	Desc string  `xml:"desc"`
}

type gpxTrk struct {
	Segs []gpxTrkSeg `xml:"trkseg"`
}

type gpxTrkSeg struct {
	Pts []gpxTrkPt `xml:"trkpt"`
}

type gpxTrkPt struct {
	Lat float64 `xml:"lat,attr"`
	Lon float64 `xml:"lon,attr"`
}

// Decode разбирает GPX файл: точки трека (обязательны), waypoints
// и восстановленный идентификатор circuit.
func Decode(data []byte) (*Parsed, error) {
	var file gpxFile
	if err := xml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	parsed := &Parsed{Name: file.Metadata.Name}

	for _, trk := range file.Trks {
		for _, seg := range trk.Segs {
			for _, pt := range seg.Pts {
				parsed.Track = append(parsed.Track, [2]float64{pt.Lat, pt.Lon})
			}
		}
	}
	if len(parsed.Track) == 0 {
		return nil, ErrNoTrackPoints
	}

	for _, wpt := range file.Wpts {
		parsed.Waypoints = append(parsed.Waypoints, Waypoint{
			Lat:  wpt.Lat,
			Lon:  wpt.Lon,
			Name: wpt.Name,
			Desc: wpt.Desc,
		})
	}

	parsed.CircuitID = recoverCircuitID(file.Metadata)

	return parsed, nil
}

// recoverCircuitID ищет маркер [HW-ID:...] в строгом порядке
// приоритета: author/name, затем keywords, затем desc (legacy).
// Первое совпадение выигрывает, дальше поиск не идёт.
func recoverCircuitID(meta gpxMetadata) string {
	for _, field := range []string{meta.Author.Name, meta.Keywords, meta.Desc} {
		if m := markerPattern.FindStringSubmatch(field); m != nil {
			return m[1]
		}
	}
	return ""
}
