package expkeys

import (
	"errors"
	"strconv"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const queryDoc = `ExpKeys.subject = 'M541';
ExpKeys.count = 12;
ExpKeys.depth = 3.5;
ExpKeys.sessiontype = {'odor', 'sequence'};
ExpKeys.channels = [1 2];
`

func TestKeys_Lookup(t *testing.T) {
	k := mustParse(t, queryDoc)
	if _, err := k.Lookup("nope"); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}
	v, err := k.Lookup("subject")
	if err != nil || v.Kind() != KindText || v.Text() != "M541" {
		t.Fatalf("unexpected value %v (err=%v)", v, err)
	}
}

func TestKeys_TypedAccessors(t *testing.T) {
	k := mustParse(t, queryDoc)

	if s, err := k.Text("subject"); err != nil || s != "M541" {
		t.Fatalf("Text: got %q, %v", s, err)
	}
	if n, err := k.Int("count"); err != nil || n != 12 {
		t.Fatalf("Int: got %d, %v", n, err)
	}
	if f, err := k.Float("depth"); err != nil || f != 3.5 {
		t.Fatalf("Float: got %v, %v", f, err)
	}
	got, err := k.Strings("sessiontype")
	if err != nil {
		t.Fatalf("Strings: %v", err)
	}
	if diff := cmp.Diff([]string{"odor", "sequence"}, got); diff != "" {
		t.Fatalf("Strings mismatch (-want +got):\n%s", diff)
	}
	if got, _ := k.Strings("subject"); len(got) != 1 || got[0] != "M541" {
		t.Fatalf("Strings on text: got %v", got)
	}
}

func TestKeys_TypeMismatch(t *testing.T) {
	k := mustParse(t, queryDoc)
	tests := []struct {
		name string
		call func() error
		want Kind
		got  Kind
	}{
		{"text of number", func() error { _, err := k.Text("count"); return err }, KindText, KindNumber},
		{"float of text", func() error { _, err := k.Float("subject"); return err }, KindNumber, KindText},
		{"int of list", func() error { _, err := k.Int("channels"); return err }, KindNumber, KindList},
		{"strings of number", func() error { _, err := k.Strings("count"); return err }, KindList, KindNumber},
		{"strings of number list", func() error { _, err := k.Strings("channels"); return err }, KindText, KindNumber},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			if !errors.Is(err, ErrTypeMismatch) {
				t.Fatalf("expected ErrTypeMismatch, got %v", err)
			}
			var tm *TypeMismatchError
			if !errors.As(err, &tm) {
				t.Fatalf("expected *TypeMismatchError, got %T", err)
			}
			if tm.Key == "" || tm.Want != tt.want || tm.Got != tt.got {
				t.Fatalf("unexpected mismatch %+v", tm)
			}
		})
	}
}

func TestKeys_IntRejectsFraction(t *testing.T) {
	k := mustParse(t, queryDoc)
	_, err := k.Int("depth")
	if !errors.Is(err, strconv.ErrSyntax) {
		t.Fatalf("expected strconv.ErrSyntax, got %v", err)
	}
	if errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("a fractional number is not a type mismatch")
	}
}

func TestTypeMismatchError_Message(t *testing.T) {
	err := &TypeMismatchError{Key: "sex", Want: KindNumber, Got: KindText}
	if got, want := err.Error(), `key "sex": expected number value, got text`; got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
	err.Key = ""
	if got, want := err.Error(), "expected number value, got text"; got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestKeys_MarshalJSON(t *testing.T) {
	k := mustParse(t, queryDoc+"ExpKeys.notes = \"don't \\\"stop\\\"\";\n")
	data, err := k.MarshalJSON()
	if err != nil {
		t.Fatal(err)
	}
	want := `{"subject":"M541","count":12,"depth":3.5,"sessiontype":["odor","sequence"],"channels":[1,2],"notes":"don't \"stop\""}`
	if string(data) != want {
		t.Fatalf("JSON mismatch\nwant: %s\ngot:  %s", want, data)
	}
}

func TestValue_Items(t *testing.T) {
	k := mustParse(t, queryDoc)
	v, _ := k.Get("sessiontype")
	items := v.Items()
	items[0] = NewText("changed")
	if again := v.Items(); again[0].Text() != "odor" {
		t.Fatalf("Items must return a copy, got %q", again[0].Text())
	}
}
