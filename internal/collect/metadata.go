package collect

import (
	"fmt"
	"os"

	"github.com/bytedance/sonic"

	"github.com/jmcruz/fiscaltone/internal/model"
	"github.com/jmcruz/fiscaltone/internal/util"
)

// LoadMetadata reads the collector metadata artifact. A missing file is an
// empty corpus, not an error; that is how a first run starts.
func LoadMetadata(path string) ([]model.DocumentMeta, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read metadata: %w", err)
	}

	var metas []model.DocumentMeta
	if err := sonic.Unmarshal(data, &metas); err != nil {
		return nil, fmt.Errorf("parse metadata: %w", err)
	}

	return metas, nil
}

// SaveMetadata writes the metadata artifact atomically. Called after every
// download so an interrupted run resumes where it stopped.
func SaveMetadata(path string, metas []model.DocumentMeta) error {
	data, err := sonic.ConfigDefault.MarshalIndent(metas, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	if err := util.WriteFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("save metadata: %w", err)
	}

	return nil
}
