package model

import (
	"encoding/json"
	"math"
	"os"
)

// Linear 是线性加权模型，粗排的默认实现。
//
// 预测原理：
// 1. 线性加权求和: z = Bias + sum(Weight_i * Feature_i)
// 2. Sigmoid 变换: P = 1 / (1 + exp(-z))
//
// 最终输出值 P 范围在 (0, 1) 之间，可直接作为候选相关性分数。
type Linear struct {
	ModelName string             // 模型标识，空时为 "linear"
	Bias      float64            // 偏置项
	Weights   map[string]float64 // 特征权重
}

// LoadLinear 从 JSON 文件加载线性模型。
// 文件格式：{"name": "...", "bias": 0.1, "weights": {"f1": 0.5, ...}}
func LoadLinear(path string) (*Linear, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw struct {
		Name    string             `json:"name"`
		Bias    float64            `json:"bias"`
		Weights map[string]float64 `json:"weights"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return &Linear{ModelName: raw.Name, Bias: raw.Bias, Weights: raw.Weights}, nil
}

func (m *Linear) Name() string {
	if m.ModelName == "" {
		return "linear"
	}
	return m.ModelName
}

func (m *Linear) Predict(features map[string]float64) (float64, error) {
	score := m.Bias
	for k, v := range features {
		if w, ok := m.Weights[k]; ok {
			score += w * v
		}
	}
	return 1 / (1 + math.Exp(-score)), nil
}
