// Package pricing 集中管理所有 MaaS 视频生成服务的价格配置。
// 价格表随进程加载一次，之后只读，可并发访问。
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/dingzu/dramagic/models"
)

// 计费单位
const (
	UnitPerRequest = "per_request" // 每次
	UnitPerSecond  = "per_second"  // 每秒
)

// 定价货币。每条价格只有一个基准货币，另一边是换算出来的
const (
	CurrencyUSD = "USD"
	CurrencyCNY = "CNY"
)

// usdToCNY 美元兑人民币汇率
var usdToCNY = decimal.RequireFromString("7.25")

// Entry 一条 (provider, model) 价格配置。每条以 USD 或 CNY 之一为准
// （Canonical），另一货币按汇率换算得出。换算是一次除法，精度有限，
// 所以严格相等只在基准货币方向成立。
type Entry struct {
	Provider     string
	ProviderName string
	Model        string
	ModelName    string
	PriceUSD     decimal.Decimal
	PriceCNY     decimal.Decimal
	Unit         string
	Canonical    string // CurrencyUSD 或 CurrencyCNY
}

// Cost 一次费用计算结果。Duration 仅 per_second 计费时有值。
type Cost struct {
	PriceUSD decimal.Decimal
	PriceCNY decimal.Decimal
	Unit     string
	Duration *int
}

func fromUSD(provider, providerName, model, modelName, usd, unit string) Entry {
	u := decimal.RequireFromString(usd)
	return Entry{
		Provider: provider, ProviderName: providerName,
		Model: model, ModelName: modelName,
		PriceUSD: u, PriceCNY: u.Mul(usdToCNY), Unit: unit,
		Canonical: CurrencyUSD,
	}
}

func fromCNY(provider, providerName, model, modelName, cny, unit string) Entry {
	c := decimal.RequireFromString(cny)
	return Entry{
		Provider: provider, ProviderName: providerName,
		Model: model, ModelName: modelName,
		PriceUSD: c.Div(usdToCNY), PriceCNY: c, Unit: unit,
		Canonical: CurrencyCNY,
	}
}

// entries 价格表。顺序即 List 的返回顺序。
var entries = []Entry{
	fromUSD("toapis", "Toapis", "sora", "Sora", "0.0250", UnitPerRequest),
	fromUSD("toapis", "Toapis", "sora-2-pro", "Sora 2 Pro", "0.6000", UnitPerRequest),
	fromCNY("comfly", "Comfly Chat", "default", "廉价版（逆向）", "0.12", UnitPerRequest),
	fromCNY("comfly", "Comfly Chat", "premium", "OpenAI 官方", "0.48", UnitPerSecond),
	fromCNY("comfly", "Comfly Chat", "original", "Original 版", "0.876", UnitPerSecond),
	fromCNY("comfly", "Comfly Chat", "pro", "Pro 版", "2.5", UnitPerRequest),
	fromUSD("fal", "Fal AI", "sora-2", "Sora 2", "0.1", UnitPerSecond),
	fromCNY("ark", "Volcengine Ark", "doubao-seedance-1-0-pro", "Seedance 1.0 Pro", "0.50", UnitPerSecond),
}

// Get 查找价格配置，未配置的 (provider, model) 返回 ErrPriceNotFound。
func Get(provider, model string) (Entry, error) {
	for _, e := range entries {
		if e.Provider == provider && e.Model == model {
			return e, nil
		}
	}
	return Entry{}, models.ErrPriceNotFound
}

// Calculate 计算一次视频生成的费用。
// per_request 忽略 duration；per_second 要求 duration 为正整数，
// 非正值属调用方参数错误，不做静默兜底。
func Calculate(provider, model string, duration int) (*Cost, error) {
	e, err := Get(provider, model)
	if err != nil {
		return nil, err
	}

	if e.Unit == UnitPerSecond {
		if duration <= 0 {
			return nil, models.NewValidationError("duration", "must be a positive integer for per_second pricing")
		}
		d := decimal.NewFromInt(int64(duration))
		dur := duration
		return &Cost{
			PriceUSD: e.PriceUSD.Mul(d),
			PriceCNY: e.PriceCNY.Mul(d),
			Unit:     e.Unit,
			Duration: &dur,
		}, nil
	}

	return &Cost{PriceUSD: e.PriceUSD, PriceCNY: e.PriceCNY, Unit: e.Unit}, nil
}

// ExchangeRate 返回 USD→CNY 汇率。
func ExchangeRate() decimal.Decimal {
	return usdToCNY
}

// List 返回全部价格配置（前端展示用）。
func List() []Entry {
	out := make([]Entry, len(entries))
	copy(out, entries)
	return out
}

// FormatUSD / FormatCNY 带符号格式化，保留 4 位小数。
func FormatUSD(d decimal.Decimal) string { return "$" + d.StringFixed(4) }
func FormatCNY(d decimal.Decimal) string { return "¥" + d.StringFixed(4) }
