package utils

import (
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
)

var sourceDir string

func init() {
	_, file, _, _ := runtime.Caller(0)
	// compatible solution to get the library source directory with various operating systems
	dir := filepath.Dir(filepath.Dir(file))
	sourceDir = filepath.ToSlash(dir) + "/"
}

// FileWithLineNum returns the file name and line number of the first caller
// outside of this library.
func FileWithLineNum() string {
	for i := 2; i < 15; i++ {
		_, file, line, ok := runtime.Caller(i)
		if ok && (!strings.HasPrefix(file, sourceDir) || strings.HasSuffix(file, "_test.go")) {
			return file + ":" + strconv.FormatInt(int64(line), 10)
		}
	}

	return ""
}

// CheckTruth reports whether val spells a truthy value. Recognized spellings
// are "true", "t", "yes", "y" and "1", case-insensitive.
func CheckTruth(val string) bool {
	switch strings.ToLower(strings.TrimSpace(val)) {
	case "true", "t", "yes", "y", "1":
		return true
	}
	return false
}
