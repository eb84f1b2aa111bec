package processing

import (
	exif "github.com/dsoprea/go-exif/v3"
)

// Metadata is a short EXIF summary shown next to a preview
type Metadata struct {
	Camera   string `json:"camera,omitempty"`
	Software string `json:"software,omitempty"`
	TakenAt  string `json:"taken_at,omitempty"`
	HasGPS   bool   `json:"has_gps"`
}

// ExtractMetadata returns an EXIF summary, or nil when the image carries none
func ExtractMetadata(data []byte) *Metadata {
	rawExif, err := exif.SearchAndExtractExif(data)
	if err != nil || rawExif == nil {
		return nil
	}

	entries, _, err := exif.GetFlatExifData(rawExif, nil)
	if err != nil {
		return nil
	}

	var cameraMake, model string
	md := &Metadata{}
	for _, entry := range entries {
		switch entry.TagName {
		case "Make":
			cameraMake = entry.Formatted
		case "Model":
			model = entry.Formatted
		case "Software":
			md.Software = entry.Formatted
		case "DateTimeOriginal":
			md.TakenAt = entry.Formatted
		case "DateTime":
			if md.TakenAt == "" {
				md.TakenAt = entry.Formatted
			}
		case "GPSLatitude", "GPSLongitude":
			md.HasGPS = true
		}
	}

	switch {
	case cameraMake != "" && model != "":
		md.Camera = cameraMake + " " + model
	case model != "":
		md.Camera = model
	default:
		md.Camera = cameraMake
	}

	if *md == (Metadata{}) {
		return nil
	}
	return md
}
