package fuzztests

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

const (
	maxSeedBytes = 64 << 10
	maxFuzzInput = 256 << 10
)

var inlineSeeds = []string{
	`{"type":"Program","body":[]}`,
	`{"type":"Program","body":[{"type":"FunctionDeclaration","id":{"type":"Identifier","name":"f"},
	  "params":[{"type":"Identifier","name":"x"}],"body":{"type":"BlockStatement","body":[
	  {"type":"ReturnStatement","argument":{"type":"BinaryExpression","operator":"|",
	   "left":{"type":"Identifier","name":"x"},"right":{"type":"Literal","value":0}}}]}}]}`,
	`{"type":"Program","body":[{"type":"FunctionDeclaration","generator":true,"id":{"type":"Identifier","name":"g"},
	  "params":[],"body":{"type":"BlockStatement","body":[{"type":"ExpressionStatement",
	  "expression":{"type":"YieldExpression","argument":{"type":"Literal","value":1}}}]}}]}`,
	`{"type":"Program","body":[{"type":"ExpressionStatement","expression":{"type":"ObjectExpression","properties":[
	  {"type":"Property","kind":"init","key":{"type":"Identifier","name":"__proto__"},"value":{"type":"Literal","value":null}}]}}]}`,
}

func addCorpusSeeds(f *testing.F) {
	for _, s := range inlineSeeds {
		f.Add([]byte(s))
	}
	root := filepath.Join("..", "..", "testdata")
	if _, err := os.Stat(root); err != nil {
		return
	}
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil || d.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}
		// #nosec G304 -- path comes from repository testdata walk
		src, err := os.ReadFile(path)
		if err == nil {
			f.Add(clampSeed(src))
		}
		return nil
	})
}

func clampSeed(src []byte) []byte {
	if len(src) <= maxSeedBytes {
		return append([]byte(nil), src...)
	}
	return append([]byte(nil), src[:maxSeedBytes]...)
}
