// Package kml renders a tour's legs as a KML document. KML files open in
// Google Earth, Google Maps and most flight-planning tools.
package kml

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"fstours/internal/tours"
)

// Namespace is the KML 2.2 namespace.
const Namespace = "http://www.opengis.net/kml/2.2"

// KML structures follow https://developers.google.com/kml/documentation/kmlreference

// KML is the root element of a KML document.
type KML struct {
	XMLName   xml.Name `xml:"kml"`
	Namespace string   `xml:"xmlns,attr"`
	Document  Document `xml:"Document"`
}

// Document contains the document metadata and features.
type Document struct {
	Name        string      `xml:"name"`
	Description string      `xml:"description,omitempty"`
	Styles      []Style     `xml:"Style,omitempty"`
	Placemarks  []Placemark `xml:"Placemark"`
}

// Style defines the look of airport icons and route lines.
type Style struct {
	ID        string     `xml:"id,attr"`
	IconStyle *IconStyle `xml:"IconStyle,omitempty"`
	LineStyle *LineStyle `xml:"LineStyle,omitempty"`
}

// IconStyle defines how icons are displayed.
type IconStyle struct {
	Scale float64 `xml:"scale,omitempty"`
	Icon  Icon    `xml:"Icon"`
}

// Icon specifies the icon image.
type Icon struct {
	Href string `xml:"href"`
}

// LineStyle sets line colour (aabbggrr) and width.
type LineStyle struct {
	Color string  `xml:"color"`
	Width float64 `xml:"width"`
}

// Placemark is an airport point or a leg line.
type Placemark struct {
	Name         string        `xml:"name"`
	Description  string        `xml:"description,omitempty"`
	StyleURL     string        `xml:"styleUrl,omitempty"`
	Point        *Point        `xml:"Point,omitempty"`
	LineString   *LineString   `xml:"LineString,omitempty"`
	ExtendedData *ExtendedData `xml:"ExtendedData,omitempty"`
}

// Point represents a geographic location.
type Point struct {
	Coordinates string `xml:"coordinates"` // lon,lat,alt
}

// LineString is a path through two or more coordinates.
type LineString struct {
	Tessellate  int    `xml:"tessellate"`
	Coordinates string `xml:"coordinates"`
}

// ExtendedData holds custom data associated with a placemark.
type ExtendedData struct {
	Data []Data `xml:"Data"`
}

// Data represents a single piece of extended data.
type Data struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value"`
}

// Build creates a document for tour from its legs, which are expected in
// flight order. Each airport with coordinates appears once as a Point;
// legs with both ends resolved become LineStrings named "<seq>. ORIG-DEST".
func Build(tour tours.Tour, legs []tours.EnrichedLeg) KML {
	var points, lines []Placemark
	seen := make(map[string]bool)

	addAirport := func(code string, c *tours.Coords, name *tours.NullableString) {
		if c == nil || seen[code] {
			return
		}
		seen[code] = true
		pm := Placemark{
			Name:     code,
			StyleURL: "#airport",
			Point:    &Point{Coordinates: coord(*c)},
		}
		if name != nil && name.Valid {
			pm.Description = name.String
		}
		points = append(points, pm)
	}

	for i, leg := range legs {
		addAirport(leg.Origin, leg.OriginCoords, leg.OriginName)
		addAirport(leg.Destination, leg.DestinationCoords, leg.DestinationName)

		if leg.OriginCoords == nil || leg.DestinationCoords == nil {
			continue
		}
		seq := leg.Sequence
		if seq == 0 {
			seq = i + 1
		}
		lines = append(lines, Placemark{
			Name:        fmt.Sprintf("%d. %s-%s", seq, leg.Origin, leg.Destination),
			Description: legDescription(leg),
			StyleURL:    "#leg",
			LineString: &LineString{
				Tessellate:  1,
				Coordinates: coord(*leg.OriginCoords) + " " + coord(*leg.DestinationCoords),
			},
			ExtendedData: legData(leg),
		})
	}

	return KML{
		Namespace: Namespace,
		Document: Document{
			Name:        tour.ID,
			Description: tour.Description,
			Styles: []Style{
				{
					ID: "airport",
					IconStyle: &IconStyle{
						Scale: 0.9,
						Icon:  Icon{Href: "http://maps.google.com/mapfiles/kml/shapes/airports.png"},
					},
				},
				{
					ID:        "leg",
					LineStyle: &LineStyle{Color: "ff0000ff", Width: 3},
				},
			},
			Placemarks: append(points, lines...),
		},
	}
}

// Write marshals doc with the XML header to w.
func Write(w io.Writer, doc KML) error {
	data, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal kml: %w", err)
	}
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	_, err = io.WriteString(w, "\n")
	return err
}

// coord formats a [lat, lon] pair as KML lon,lat,alt.
func coord(c tours.Coords) string {
	return fmt.Sprintf("%.6f,%.6f,0", c[1], c[0])
}

func legDescription(leg tours.EnrichedLeg) string {
	var parts []string
	if leg.FlightDate != nil {
		parts = append(parts, "Date: "+*leg.FlightDate)
	}
	if leg.Aircraft != nil {
		ac := *leg.Aircraft
		if leg.AircraftModel != nil {
			ac += " (" + *leg.AircraftModel + ")"
		}
		parts = append(parts, "Aircraft: "+ac)
	}
	if leg.Route != nil {
		parts = append(parts, "Route: "+*leg.Route)
	}
	if leg.Comments != nil {
		parts = append(parts, *leg.Comments)
	}
	return strings.Join(parts, "\n")
}

func legData(leg tours.EnrichedLeg) *ExtendedData {
	data := []Data{{Name: "leg_id", Value: strconv.FormatInt(leg.ID, 10)}}
	if leg.FlightDate != nil {
		data = append(data, Data{Name: "flight_date", Value: *leg.FlightDate})
	}
	for i, link := range []*string{leg.Link1, leg.Link2, leg.Link3} {
		if link != nil {
			data = append(data, Data{Name: "link" + strconv.Itoa(i+1), Value: *link})
		}
	}
	return &ExtendedData{Data: data}
}
