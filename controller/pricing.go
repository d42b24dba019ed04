package controller

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/dingzu/dramagic/pkg/pricing"
)

// PricingController 价格目录与费用试算
type PricingController struct{}

func NewPricingController() *PricingController { return &PricingController{} }

type priceEntryView struct {
	Provider     string `json:"provider"`
	ProviderName string `json:"provider_name"`
	Model        string `json:"model"`
	ModelName    string `json:"model_name"`
	PriceUSD     string `json:"price_usd"`
	PriceCNY     string `json:"price_cny"`
	Unit         string `json:"unit"`
}

// ListPricing GET /api/v1/pricing 返回完整价格目录和汇率
func (pc *PricingController) ListPricing(c *gin.Context) {
	entries := pricing.List()
	views := make([]priceEntryView, 0, len(entries))
	for _, e := range entries {
		views = append(views, priceEntryView{
			Provider:     e.Provider,
			ProviderName: e.ProviderName,
			Model:        e.Model,
			ModelName:    e.ModelName,
			PriceUSD:     e.PriceUSD.StringFixed(4),
			PriceCNY:     e.PriceCNY.StringFixed(4),
			Unit:         e.Unit,
		})
	}
	ResponseSuccess(c, gin.H{
		"usd_to_cny": pricing.ExchangeRate().String(),
		"entries":    views,
	})
}

// ComputeCost GET /api/v1/pricing/cost?provider=comfly&model=premium&duration=8
func (pc *PricingController) ComputeCost(c *gin.Context) {
	providerKey := c.Query("provider")
	model := c.Query("model")
	if providerKey == "" || model == "" {
		ResponseErrorWithMsg(c, http.StatusBadRequest, CodeInvalidParams, "provider and model are required")
		return
	}
	duration := 0
	if raw := c.Query("duration"); raw != "" {
		d, err := strconv.Atoi(raw)
		if err != nil {
			ResponseErrorWithMsg(c, http.StatusBadRequest, CodeInvalidParams, "invalid duration")
			return
		}
		duration = d
	}

	cost, err := pricing.Calculate(providerKey, model, duration)
	if err != nil {
		ResponseFromError(c, err)
		return
	}
	ResponseSuccess(c, gin.H{
		"provider":    providerKey,
		"model":       model,
		"price_usd":   cost.PriceUSD.StringFixed(4),
		"price_cny":   cost.PriceCNY.StringFixed(4),
		"display_usd": pricing.FormatUSD(cost.PriceUSD),
		"display_cny": pricing.FormatCNY(cost.PriceCNY),
		"unit":        cost.Unit,
		"duration":    cost.Duration,
	})
}
