package loader

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/magiconair/properties"
)

// QualityParameterPrefix selects analyzer parameters from a properties file.
const QualityParameterPrefix = "sonar."

// ReadQualityParameters returns the sonar.* keys of a sonar-project.properties file
// in file order. A missing file yields nil.
func ReadQualityParameters(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}

	l := &properties.Loader{Encoding: properties.UTF8, DisableExpansion: true}
	p, err := l.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading quality properties %s: %w", path, err)
	}

	var params []string
	for _, key := range p.Keys() {
		if strings.HasPrefix(key, QualityParameterPrefix) {
			params = append(params, key)
		}
	}
	return params, nil
}
