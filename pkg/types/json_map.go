package types

// JSONMap is a loose JSON object persisted through gorm's json serializer.
type JSONMap map[string]any
