package services

import (
	"reflect"
	"testing"
)

func TestExtractTriggerEvent(t *testing.T) {
	ref, ok := extractTriggerEvent("Problem started\ntriggerid=12&eventid=34\nmore text")
	if !ok {
		t.Fatalf("expected a trigger/event reference")
	}
	if ref.TriggerID != 12 || ref.EventID != 34 {
		t.Fatalf("unexpected reference: %+v", ref)
	}
}

func TestExtractTriggerEvent_Absent(t *testing.T) {
	for _, body := range []string{
		"",
		"no reference here",
		"triggerid=12",              // incomplete
		"eventid=34&triggerid=12",   // wrong order is not the documented form
		"triggerid=abc&eventid=34",  // non-numeric
		"triggerid=12&eventid=",     // missing value
	} {
		if _, ok := extractTriggerEvent(body); ok {
			t.Fatalf("unexpected match for %q", body)
		}
	}
}

func TestExtractItemDirectives_None(t *testing.T) {
	body := "CPU load is high\ntriggerid=1&eventid=2"
	ids, text := extractItemDirectives(body)
	if ids != nil {
		t.Fatalf("unexpected ids: %v", ids)
	}
	if text != body {
		t.Fatalf("body changed without directives: %q", text)
	}
}

func TestExtractItemDirectives_SingleStripped(t *testing.T) {
	ids, text := extractItemDirectives("CPU load is high\nzbx;itemid:42")
	if !reflect.DeepEqual(ids, []int64{42}) {
		t.Fatalf("unexpected ids: %v", ids)
	}
	if text != "CPU load is high" {
		t.Fatalf("directive not stripped cleanly: %q", text)
	}
}

func TestExtractItemDirectives_MultipleCollected(t *testing.T) {
	ids, text := extractItemDirectives("zbx;itemid:1 zbx;itemid:2\nvalues above threshold zbx;itemid:3")
	if !reflect.DeepEqual(ids, []int64{1, 2, 3}) {
		t.Fatalf("unexpected ids: %v", ids)
	}
	if text != "values above threshold" {
		t.Fatalf("unexpected stripped text: %q", text)
	}
}

func TestExtractItemDirectives_InlineKeepsSurroundingText(t *testing.T) {
	ids, text := extractItemDirectives("graph: zbx;itemid:7 attached")
	if !reflect.DeepEqual(ids, []int64{7}) {
		t.Fatalf("unexpected ids: %v", ids)
	}
	if text != "graph:  attached" {
		t.Fatalf("unexpected stripped text: %q", text)
	}
}
