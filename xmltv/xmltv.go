// Package xmltv emits the generated EPG as XMLTV: channel list, then
// per-channel programmes, with gzip support for large guides. The manual
// token-by-token encoding.xml emission, the "20060102150405 +0000" layout,
// and the gzip response wrapper are ported from the teacher's
// services/epg/cmd/epg/main.go HTTP handler, generalized from a direct
// SQL-row walk to a projection over model.ManagedChannel/model.Program —
// this package is a pure writer with no storage or HTTP concerns of its own
// (spec.md §1 names XMLTV emission as an external collaborator's format,
// not a subsystem this module owns end-to-end).
package xmltv

import (
	"compress/gzip"
	"encoding/xml"
	"io"
	"time"

	"github.com/unyeco/sportguide/model"
)

const timeLayout = "20060102150405 +0000"

// Channel is one XMLTV <channel> entry, keyed by its stable tvg-id.
type Channel struct {
	TvgID    string
	Name     string
	LogoURL  string
	Programs []model.Program
}

// WriteOptions configures one Write call.
type WriteOptions struct {
	GeneratorName string // defaults to "sportguide EPG"
	Gzip          bool
}

// Write emits channels as an XMLTV document to w. Channels are written in
// the order given; each channel's programmes are written in the order they
// appear in Channel.Programs (callers must have already sorted them
// gap-free per spec.md §4.9's per-team timeline invariant — this package
// does not re-sort or validate gaps, it only serializes).
func Write(w io.Writer, channels []Channel, opts WriteOptions) error {
	generator := opts.GeneratorName
	if generator == "" {
		generator = "sportguide EPG"
	}

	dest := w
	if opts.Gzip {
		gz := gzip.NewWriter(w)
		defer gz.Close()
		dest = gz
	}

	enc := xml.NewEncoder(dest)
	enc.Indent("", "  ")

	if err := enc.EncodeToken(xml.ProcInst{Target: "xml", Inst: []byte(`version="1.0" encoding="UTF-8"`)}); err != nil {
		return err
	}
	if err := enc.EncodeToken(xml.StartElement{Name: xml.Name{Local: "tv"}, Attr: []xml.Attr{
		{Name: xml.Name{Local: "generator-info-name"}, Value: generator},
	}}); err != nil {
		return err
	}

	for _, ch := range channels {
		if err := writeChannelElement(enc, ch); err != nil {
			return err
		}
	}
	for _, ch := range channels {
		for _, p := range ch.Programs {
			if err := writeProgramme(enc, ch.TvgID, p); err != nil {
				return err
			}
		}
	}

	if err := enc.EncodeToken(xml.EndElement{Name: xml.Name{Local: "tv"}}); err != nil {
		return err
	}
	return enc.Flush()
}

func writeChannelElement(enc *xml.Encoder, ch Channel) error {
	if err := enc.EncodeToken(xml.StartElement{Name: xml.Name{Local: "channel"}, Attr: []xml.Attr{
		{Name: xml.Name{Local: "id"}, Value: ch.TvgID},
	}}); err != nil {
		return err
	}
	if err := enc.EncodeElement(ch.Name, xml.StartElement{Name: xml.Name{Local: "display-name"}}); err != nil {
		return err
	}
	if ch.LogoURL != "" {
		if err := enc.EncodeToken(xml.StartElement{Name: xml.Name{Local: "icon"}, Attr: []xml.Attr{
			{Name: xml.Name{Local: "src"}, Value: ch.LogoURL},
		}}); err != nil {
			return err
		}
		if err := enc.EncodeToken(xml.EndElement{Name: xml.Name{Local: "icon"}}); err != nil {
			return err
		}
	}
	return enc.EncodeToken(xml.EndElement{Name: xml.Name{Local: "channel"}})
}

func writeProgramme(enc *xml.Encoder, tvgID string, p model.Program) error {
	if err := enc.EncodeToken(xml.StartElement{Name: xml.Name{Local: "programme"}, Attr: []xml.Attr{
		{Name: xml.Name{Local: "start"}, Value: formatTime(p.Start)},
		{Name: xml.Name{Local: "stop"}, Value: formatTime(p.End)},
		{Name: xml.Name{Local: "channel"}, Value: tvgID},
	}}); err != nil {
		return err
	}
	if err := enc.EncodeElement(p.Title, xml.StartElement{Name: xml.Name{Local: "title"}}); err != nil {
		return err
	}
	if p.Subtitle != "" {
		if err := enc.EncodeElement(p.Subtitle, xml.StartElement{Name: xml.Name{Local: "sub-title"}}); err != nil {
			return err
		}
	}
	if p.Description != "" {
		if err := enc.EncodeElement(p.Description, xml.StartElement{Name: xml.Name{Local: "desc"}}); err != nil {
			return err
		}
	}
	for _, cat := range p.Categories {
		if err := enc.EncodeElement(string(cat), xml.StartElement{Name: xml.Name{Local: "category"}}); err != nil {
			return err
		}
	}
	if p.ArtworkURL != "" {
		if err := enc.EncodeToken(xml.StartElement{Name: xml.Name{Local: "icon"}, Attr: []xml.Attr{
			{Name: xml.Name{Local: "src"}, Value: p.ArtworkURL},
		}}); err != nil {
			return err
		}
		if err := enc.EncodeToken(xml.EndElement{Name: xml.Name{Local: "icon"}}); err != nil {
			return err
		}
	}
	return enc.EncodeToken(xml.EndElement{Name: xml.Name{Local: "programme"}})
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}
