package main

import (
	"strings"
	"testing"
)

func TestParseEmitPayload(t *testing.T) {
	for _, tc := range []struct {
		name  string
		topic string
		args  []string
		want  string
	}{
		{"KeyValue", "toggleIndustry", []string{"industry=Health"}, `{"industry":"Health"}`},
		{"TypedValue", "updateYearFilter", []string{"range=[2015,2020]"}, `{"range":[2015,2020]}`},
		{"JSONObject", "selectItem", []string{`{"id":"Stripe"}`}, `{"id":"Stripe"}`},
		{"NoFields", "clearSelectedItem", nil, ""},
		{"EmbeddedPosition", "moveTooltip", []string{"x=10", "y=20"}, `{"x":10,"y":20}`},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseEmitPayload(tc.topic, tc.args)
			if err != nil {
				t.Fatalf("parseEmitPayload() error = %v", err)
			}
			if string(got) != tc.want {
				t.Errorf("payload = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestParseEmitPayload_Errors(t *testing.T) {
	for _, tc := range []struct {
		name    string
		topic   string
		args    []string
		wantErr string
	}{
		{"UnknownTopic", "explode", nil, "unknown topic"},
		{"MissingEquals", "selectItem", []string{"Stripe"}, "want key=value"},
		{"WrongType", "updateYearFilter", []string{"range=soon"}, "updateYearFilter"},
		{"BadJSON", "selectItem", []string{`{"id":`}, "selectItem"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := parseEmitPayload(tc.topic, tc.args)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("error = %v, want it to mention %q", err, tc.wantErr)
			}
		})
	}
}
