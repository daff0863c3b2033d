package engine

import "bytes"

// discoverExports scans a compiled component artifact for its declared
// export names. Real component-model binaries carry export names as
// UTF-8 strings in their export section; this is a simplified stand-in that
// looks for those names as byte substrings, in the spirit of the sdk
// package's matchRegex simplification -- real binary parsing is an external
// build/runtime driver's concern.
func discoverExports(data []byte) (map[string]bool, error) {
	found := make(map[string]bool, 4)
	names := []string{"get-metadata", "get-tools", "execute-tool", "validate-config"}
	for _, name := range names {
		if bytes.Contains(data, []byte(name)) {
			found[name] = true
		}
	}
	return found, nil
}
