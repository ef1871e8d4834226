package testutil

// MaxFuzzBytes bounds the input fed to fuzz targets.
const MaxFuzzBytes = 2048

// ClampString truncates data to at most max bytes.
func ClampString(data string, max int) string {
	if len(data) > max {
		return data[:max]
	}
	return data
}
