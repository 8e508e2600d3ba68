package model

// Model 是排序阶段的最小抽象：输入特征，输出一个可比较的分数。
// 具体实现可以是本地模型（线性/亲和度）或远程服务（RPC）。
// 粗排与精排各自持有一个激活模型引用，热替换通过引用交换完成。
type Model interface {
	Name() string
	Predict(features map[string]float64) (float64, error)
}

// BatchModel 支持批量预测（精排常用，减少远程往返）。
type BatchModel interface {
	Model
	PredictBatch(featuresList []map[string]float64) ([]float64, error)
}

// Info 描述模型的申报特性，仅用于上报/选型，不影响正确性。
type Info struct {
	Name      string  `json:"name"`
	Stage     string  `json:"stage"`      // light / heavy
	Accuracy  float64 `json:"accuracy"`   // 申报准确率
	LatencyMs float64 `json:"latency_ms"` // 申报时延
}
