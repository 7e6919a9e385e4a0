package domain

// ImageResult 是一次图片搜索返回的单条候选。
//
// 约束：
// - 只在一次搜索交互内有效（核心不做任何缓存/持久化）
// - 尺寸缺失保持 0（provider 不提供就不猜）
// - 核心只提供源 URL，下载/落盘由调用方完成
type ImageResult struct {
	PreviewURL string `json:"preview_url,omitempty"`
	FullURL    string `json:"full_url"`
	Provider   string `json:"provider"`
	Width      int    `json:"width,omitempty"`
	Height     int    `json:"height,omitempty"`
}
