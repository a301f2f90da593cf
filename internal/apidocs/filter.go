package apidocs

import (
	"regexp"
	"strings"
)

// actionVerbs are request verbs that hint at the data an instruction needs.
var actionVerbs = []string{
	"get", "list", "fetch", "load", "create", "add", "update", "edit",
	"delete", "remove", "submit", "save", "search", "upload", "send",
}

// domainNouns are common resource names in component instructions.
var domainNouns = []string{
	"user", "account", "profile", "product", "order", "cart", "item",
	"customer", "payment", "invoice", "message", "comment", "post",
	"file", "image", "event", "task", "project", "team", "notification",
	"search", "setting", "report", "auth", "session",
}

// triggerWords in an instruction turn on enrichment even when not requested.
var triggerWords = []string{
	"api", "endpoint", "fetch", "backend", "integrate", "request", "data from", "load", "submit",
}

var (
	wordRegex = regexp.MustCompile(`[a-z][a-z0-9]*`)
	urlRegex  = regexp.MustCompile(`(?:https?://[^\s'"` + "`" + `)]+|/api/[^\s'"` + "`" + `)]*)`)
)

// NeedsContext reports whether an instruction mentions an enrichment trigger.
func NeedsContext(instruction string) bool {
	lower := strings.ToLower(instruction)
	for _, w := range triggerWords {
		if strings.Contains(w, " ") {
			if strings.Contains(lower, w) {
				return true
			}
			continue
		}
		for _, tok := range wordRegex.FindAllString(lower, -1) {
			if tok == w {
				return true
			}
		}
	}
	return false
}

// Keywords extracts the lowercase match terms from an instruction, the
// current code and the component name.
func Keywords(instruction, code, componentName string) []string {
	seen := map[string]bool{}
	var out []string
	add := func(k string) {
		k = strings.ToLower(strings.TrimSpace(k))
		if len(k) < 3 || seen[k] {
			return
		}
		seen[k] = true
		out = append(out, k)
	}

	text := strings.ToLower(instruction + "\n" + code)
	words := map[string]bool{}
	for _, w := range wordRegex.FindAllString(text, -1) {
		words[w] = true
		words[strings.TrimSuffix(w, "s")] = true
	}
	for _, v := range actionVerbs {
		if words[v] {
			add(v)
		}
	}
	for _, n := range domainNouns {
		if words[n] {
			add(n)
		}
	}

	for _, u := range urlRegex.FindAllString(instruction+"\n"+code, -1) {
		path := u
		if i := strings.Index(u, "://"); i >= 0 {
			rest := u[i+3:]
			if j := strings.IndexByte(rest, '/'); j >= 0 {
				path = rest[j:]
			} else {
				path = ""
			}
		}
		path = strings.TrimRight(path, "/")
		if path == "" {
			continue
		}
		add(path)
		for _, seg := range strings.Split(path, "/") {
			if seg != "" && seg != "api" && !strings.HasPrefix(seg, "{") && !strings.HasPrefix(seg, ":") {
				add(seg)
			}
		}
	}

	for _, seg := range strings.Split(componentName, "-") {
		add(seg)
	}
	return out
}

// Filter keeps the endpoints relevant to an edit: a path is included when any
// keyword is a case-insensitive substring of it, or the instruction names the
// path literally.
func Filter(endpoints []Endpoint, instruction string, keywords []string) []Endpoint {
	lowerInstruction := strings.ToLower(instruction)
	var out []Endpoint
	for _, e := range endpoints {
		p := strings.ToLower(e.Path)
		if strings.Contains(lowerInstruction, p) || matchesAny(p, keywords) {
			out = append(out, e)
		}
	}
	return out
}

func matchesAny(path string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(path, k) {
			return true
		}
	}
	return false
}
