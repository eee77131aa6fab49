package main

import "testing"

func TestSplitImageRef(t *testing.T) {
	cases := []struct {
		in       string
		wantName string
		wantTag  string
	}{
		{"busybox", "busybox", "latest"},
		{"busybox:1.36", "busybox", "1.36"},
		{"library/busybox:1.36", "library/busybox", "1.36"},
		{"registry.example.com:5000/app", "registry.example.com:5000/app", "latest"},
	}
	for _, c := range cases {
		name, tag := splitImageRef(c.in)
		if name != c.wantName || tag != c.wantTag {
			t.Errorf("splitImageRef(%q) = (%q, %q), want (%q, %q)", c.in, name, tag, c.wantName, c.wantTag)
		}
	}
}
