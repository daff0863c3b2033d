package retrieval

// lexicon.go holds the fixed word lists query processing expands against,
// grounded on original_source/search/query_processor.rs's init_* methods.

var actionVerbs = map[string]struct{}{}

func init() {
	for _, v := range []string{
		"create", "make", "add", "new", "generate",
		"delete", "remove", "destroy", "drop",
		"list", "get", "fetch", "retrieve", "show", "display",
		"update", "modify", "change", "edit", "patch",
		"read", "view", "inspect", "describe",
		"run", "execute", "invoke", "call", "start",
		"stop", "kill", "terminate", "cancel",
		"deploy", "install", "setup", "configure",
		"search", "find", "query", "filter",
		"connect", "disconnect", "link",
		"send", "receive", "push", "pull",
		"upload", "download", "sync",
		"validate", "verify", "check", "test",
	} {
		actionVerbs[v] = struct{}{}
	}
}

var synonyms = map[string][]string{
	"create": {"make", "generate", "add", "new", "build"},
	"delete": {"remove", "destroy", "drop", "erase"},
	"list":   {"get", "show", "display", "fetch", "retrieve"},
	"update": {"modify", "change", "edit", "patch", "alter"},
	"run":    {"execute", "invoke", "call", "start", "launch"},
	"find":   {"search", "query", "lookup", "locate"},
	"stop":   {"kill", "terminate", "cancel", "halt"},
	"deploy": {"install", "setup", "release", "publish"},
	"file":   {"document", "artifact"},
	"folder": {"directory", "dir"},
	"container": {"pod", "instance"},
}

var acronyms = map[string]string{
	"k8s":    "kubernetes",
	"gh":     "github",
	"gl":     "gitlab",
	"db":     "database",
	"aws":    "amazon web services",
	"gcp":    "google cloud platform",
	"az":     "azure",
	"tf":     "terraform",
	"ci":     "continuous integration",
	"cd":     "continuous deployment",
	"api":    "application programming interface",
	"cli":    "command line interface",
	"env":    "environment",
	"vars":   "variables",
	"config": "configuration",
	"auth":   "authentication",
	"repo":   "repository",
}

var categories = map[string][]string{
	"kubernetes": {"pod", "deployment", "service", "namespace", "ingress", "configmap", "secret", "node", "cluster"},
	"git":        {"commit", "branch", "merge", "pull", "push", "clone", "checkout", "repository", "repo"},
	"database":   {"query", "table", "schema", "index", "migration", "backup", "restore"},
	"cloud":      {"instance", "bucket", "function", "lambda", "storage", "network", "vpc"},
	"docker":     {"container", "image", "volume", "network", "compose"},
	"file":       {"read", "write", "copy", "move", "delete", "list", "directory"},
}
