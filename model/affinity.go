package model

import "math"

// Affinity 是画像亲和度模型，精排的默认实现。
// 特征向量中以 PrefPrefix 开头的特征被视为"画像偏好 × 物品特征"的乘积项，
// 其余特征按 Base 权重线性聚合，最后做 sigmoid 压缩。
//
// 相比粗排的 Linear，它假定调用方已经把完整画像特征展开进特征向量，
// 计算本身仍是确定的纯函数：这保证了精排的幂等性。
type Affinity struct {
	ModelName string

	// PrefPrefix 偏好乘积项的特征名前缀，空时为 "pref_"。
	PrefPrefix string

	// PrefWeight 偏好项的聚合权重。
	PrefWeight float64

	// Base 其余特征的线性权重。
	Base map[string]float64

	Bias float64
}

func (m *Affinity) Name() string {
	if m.ModelName == "" {
		return "affinity"
	}
	return m.ModelName
}

func (m *Affinity) prefPrefix() string {
	if m.PrefPrefix == "" {
		return "pref_"
	}
	return m.PrefPrefix
}

func (m *Affinity) Predict(features map[string]float64) (float64, error) {
	prefix := m.prefPrefix()
	prefWeight := m.PrefWeight
	if prefWeight == 0 {
		prefWeight = 1.0
	}

	z := m.Bias
	for k, v := range features {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			z += prefWeight * v
			continue
		}
		if w, ok := m.Base[k]; ok {
			z += w * v
		}
	}
	return 1 / (1 + math.Exp(-z)), nil
}

// PredictBatch 逐条调用 Predict（本地模型无需真正的批量优化）。
func (m *Affinity) PredictBatch(featuresList []map[string]float64) ([]float64, error) {
	out := make([]float64, len(featuresList))
	for i, f := range featuresList {
		score, err := m.Predict(f)
		if err != nil {
			return nil, err
		}
		out[i] = score
	}
	return out, nil
}
