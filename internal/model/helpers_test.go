package model

import "lorachat/internal/config"

func testModelConfig() config.ModelConfig {
	return config.Default().Model
}
