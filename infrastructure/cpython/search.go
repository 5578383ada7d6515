package cpython

import (
	"os"
	"path/filepath"
)

// candidates returns the library paths to try, in order. An explicit
// library, or the LibraryEnv override, is the only candidate.
func candidates(cfg config, goos string) []string {
	if env := os.Getenv(LibraryEnv); env != "" {
		return []string{env}
	}
	if cfg.library != "" {
		return []string{cfg.library}
	}

	var names []string
	for _, v := range cfg.versions {
		switch goos {
		case "darwin":
			names = append(names,
				"/Library/Frameworks/Python.framework/Versions/"+v+"/Python",
				"/opt/homebrew/opt/python@"+v+"/Frameworks/Python.framework/Versions/"+v+"/Python",
				"/usr/local/opt/python@"+v+"/Frameworks/Python.framework/Versions/"+v+"/Python",
				"libpython"+v+".dylib",
			)
		default:
			names = append(names, "libpython"+v+".so.1.0", "libpython"+v+".so")
		}
	}
	if cfg.home == "" {
		return names
	}

	local := make([]string, 0, len(names))
	for _, name := range names {
		if filepath.Base(name) == name {
			local = append(local, filepath.Join(cfg.home, "lib", name))
		}
	}
	return append(local, names...)
}
