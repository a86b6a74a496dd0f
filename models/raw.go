package models

// RawConflict ist ein unbereinigter Datensatz, wie ihn ein Provider liefert.
type RawConflict struct {
	Title            string   `json:"title" yaml:"title"`
	DateText         string   `json:"date_text,omitempty" yaml:"date_text"`
	StartDateText    string   `json:"start_date_text,omitempty" yaml:"start_date_text"`
	EndDateText      string   `json:"end_date_text,omitempty" yaml:"end_date_text"`
	LocationText     string   `json:"location_text,omitempty" yaml:"location_text"`
	CasualtiesText   string   `json:"casualties_text,omitempty" yaml:"casualties_text"`
	BelligerentsText string   `json:"belligerents_text,omitempty" yaml:"belligerents_text"`
	ResultText       string   `json:"result_text,omitempty" yaml:"result_text"`
	Description      string   `json:"description,omitempty" yaml:"description"`
	Notes            string   `json:"notes,omitempty" yaml:"notes"`
	SourceURL        string   `json:"source_url,omitempty" yaml:"source_url"`
	SourceName       string   `json:"source_name,omitempty" yaml:"source_name"`
	SourceType       string   `json:"source_type,omitempty" yaml:"source_type"`
	Citation         string   `json:"citation,omitempty" yaml:"citation"`
	References       []string `json:"references,omitempty" yaml:"references"`
}

// RawField setzt ein Feld über seinen Spaltenschlüssel. Unbekannte Schlüssel
// werden ignoriert.
func (r *RawConflict) RawField(key, value string) {
	switch key {
	case "title":
		r.Title = value
	case "date_text":
		r.DateText = value
	case "start_date_text":
		r.StartDateText = value
	case "end_date_text":
		r.EndDateText = value
	case "location_text":
		r.LocationText = value
	case "casualties_text":
		r.CasualtiesText = value
	case "belligerents_text":
		r.BelligerentsText = value
	case "result_text":
		r.ResultText = value
	case "description":
		r.Description = value
	case "notes":
		r.Notes = value
	case "source_url":
		r.SourceURL = value
	case "source_name":
		r.SourceName = value
	case "source_type":
		r.SourceType = value
	case "citation":
		r.Citation = value
	}
}
