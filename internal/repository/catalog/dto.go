package catalog

// fileDTO is the on-disk layout of a preloaded catalog.
type fileDTO struct {
	Dimensions int           `yaml:"dimensions"`
	Documents  []documentDTO `yaml:"documents"`
}

type documentDTO struct {
	ID       string         `yaml:"id"`
	Source   string         `yaml:"source"`
	Text     string         `yaml:"text"`
	Metadata map[string]any `yaml:"metadata"`
	Vector   []float32      `yaml:"vector"`
}
