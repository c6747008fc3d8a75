package journal

import "testing"

func TestMarshalMembers(t *testing.T) {
	tests := []struct {
		name    string
		members []string
		want    string
	}{
		{"nil", nil, "[]"},
		{"empty", []string{}, "[]"},
		{"ordered", []string{"getColourRGB", "setColourRGB"}, `["getColourRGB","setColourRGB"]`},
		{"preserves install order", []string{"b", "a"}, `["b","a"]`},
		{"no html escaping", []string{"a<b>"}, `["a<b>"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := marshalMembers(tt.members)
			if err != nil {
				t.Fatalf("marshalMembers() failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("marshalMembers() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUnmarshalMembers(t *testing.T) {
	tests := []struct {
		name string
		data string
		want []string
	}{
		{"empty string", "", []string{}},
		{"empty array", "[]", []string{}},
		{"values", `["a","b"]`, []string{"a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := unmarshalMembers(tt.data)
			if err != nil {
				t.Fatalf("unmarshalMembers() failed: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("member %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestUnmarshalMembers_RoundTrip(t *testing.T) {
	members := []string{"setColourRGB", "getColourRGB", "name"}

	data, err := marshalMembers(members)
	if err != nil {
		t.Fatalf("marshalMembers() failed: %v", err)
	}
	back, err := unmarshalMembers(data)
	if err != nil {
		t.Fatalf("unmarshalMembers() failed: %v", err)
	}

	if len(back) != len(members) {
		t.Fatalf("round trip changed length: %v", back)
	}
	for i := range members {
		if back[i] != members[i] {
			t.Errorf("member %d = %q, want %q", i, back[i], members[i])
		}
	}
}

func TestUnmarshalMembers_InvalidJSON(t *testing.T) {
	if _, err := unmarshalMembers("{not json"); err == nil {
		t.Error("expected error for invalid JSON")
	}
}
