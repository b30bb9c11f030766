package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"net/http"
	"path"
	"sort"
	"strings"
)

//go:embed locales/*.json
var locales embed.FS

const DefaultLang = "en"

var translations = mustLoad()

func mustLoad() map[string]map[string]string {
	files, err := locales.ReadDir("locales")
	if err != nil {
		panic(err)
	}
	out := make(map[string]map[string]string, len(files))
	for _, f := range files {
		data, err := locales.ReadFile(path.Join("locales", f.Name()))
		if err != nil {
			panic(err)
		}
		var t map[string]string
		if err := json.Unmarshal(data, &t); err != nil {
			panic(fmt.Sprintf("locale %s: %v", f.Name(), err))
		}
		out[strings.TrimSuffix(f.Name(), ".json")] = t
	}
	return out
}

// T looks key up in lang, then in English, then returns key itself.
func T(lang, key string) string {
	if t, ok := translations[lang]; ok {
		if val, ok := t[key]; ok {
			return val
		}
	}
	if val, ok := translations[DefaultLang][key]; ok {
		return val
	}
	return key
}

// Tf is T followed by fmt.Sprintf.
func Tf(lang, key string, args ...any) string {
	return fmt.Sprintf(T(lang, key), args...)
}

// GetLang picks the lang cookie, then the first supported Accept-Language tag.
func GetLang(r *http.Request) string {
	if cookie, err := r.Cookie("lang"); err == nil {
		if _, ok := translations[cookie.Value]; ok {
			return cookie.Value
		}
	}
	for _, tag := range strings.Split(r.Header.Get("Accept-Language"), ",") {
		tag = strings.TrimSpace(strings.SplitN(tag, ";", 2)[0])
		base := strings.ToLower(strings.SplitN(tag, "-", 2)[0])
		if _, ok := translations[base]; ok {
			return base
		}
	}
	return DefaultLang
}

func GetAvailableLangs() []string {
	langs := make([]string, 0, len(translations))
	for l := range translations {
		langs = append(langs, l)
	}
	sort.Strings(langs)
	return langs
}
