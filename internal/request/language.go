package request

import "strings"

// Language identifies a supported C/C++ standard.
type Language string

const (
	LangC99   Language = "c99"
	LangC11   Language = "c11"
	LangC17   Language = "c17"
	LangCPP11 Language = "cpp11"
	LangCPP14 Language = "cpp14"
	LangCPP17 Language = "cpp17"
	LangCPP20 Language = "cpp20"
)

var supportedLanguages = map[Language]string{
	LangC99:   "-std=c99",
	LangC11:   "-std=c11",
	LangC17:   "-std=c17",
	LangCPP11: "-std=c++11",
	LangCPP14: "-std=c++14",
	LangCPP17: "-std=c++17",
	LangCPP20: "-std=c++20",
}

// Supported reports whether the language tag is in the supported set.
func (l Language) Supported() bool {
	_, ok := supportedLanguages[l]
	return ok
}

// IsC reports whether the language is a C (not C++) standard.
func (l Language) IsC() bool {
	return strings.HasPrefix(string(l), "c9") || strings.HasPrefix(string(l), "c1")
}

// StdFlag returns the compiler standard-version flag for the language.
func (l Language) StdFlag() string {
	return supportedLanguages[l]
}

// SourceFileName returns the canonical source file name for the language.
func (l Language) SourceFileName() string {
	if l.IsC() {
		return "main.c"
	}
	return "main.cpp"
}

// SupportedLanguages returns all supported language tags, for error messages.
func SupportedLanguages() []string {
	return []string{"c99", "c11", "c17", "cpp11", "cpp14", "cpp17", "cpp20"}
}
