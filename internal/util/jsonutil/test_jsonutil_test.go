package jsonutil

import "testing"

func TestMarshalNoEscapeKeepsAngleBrackets(t *testing.T) {
	got, err := MarshalNoEscape(map[string]string{"Argv": "vector<int>&"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if want := `{"Argv":"vector<int>&"}`; string(got) != want {
		t.Fatalf("got=%s want=%s", got, want)
	}
}

func TestMarshalNoEscapeIndent(t *testing.T) {
	got, err := MarshalNoEscapeIndent(map[string][]int{"nodes": {1}}, "", "    ")
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := "{\n    \"nodes\": [\n        1\n    ]\n}"
	if string(got) != want {
		t.Fatalf("got=%q want=%q", got, want)
	}
}

func TestUnmarshalRejectsTrailingData(t *testing.T) {
	var v map[string]int
	if err := Unmarshal([]byte(`{"a":1} {"b":2}`), &v); err == nil {
		t.Fatalf("expected trailing data error")
	}
	if err := Unmarshal([]byte(`{"a":1}`+"\n"), &v); err != nil {
		t.Fatalf("single value: %v", err)
	}
	if v["a"] != 1 {
		t.Fatalf("a: got=%d want=1", v["a"])
	}
}
