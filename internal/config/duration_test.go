package config

import (
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestDurationUnmarshalString(t *testing.T) {
	var d Duration
	if err := yaml.Unmarshal([]byte("90s"), &d); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if d.Std() != 90*time.Second {
		t.Fatalf("got %v", d.Std())
	}
}

func TestDurationUnmarshalNanoseconds(t *testing.T) {
	var d Duration
	if err := yaml.Unmarshal([]byte("1000000000"), &d); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if d.Std() != time.Second {
		t.Fatalf("got %v", d.Std())
	}
}

func TestDurationUnmarshalInvalid(t *testing.T) {
	var d Duration
	if err := yaml.Unmarshal([]byte("soon"), &d); err == nil {
		t.Fatal("expected error for unparsable duration")
	}
}

func TestDurationRoundTrip(t *testing.T) {
	out, err := yaml.Marshal(Duration(15 * time.Minute))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back Duration
	if err := yaml.Unmarshal(out, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.Std() != 15*time.Minute {
		t.Fatalf("round trip mismatch: %v", back.Std())
	}
}
