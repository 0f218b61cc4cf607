package registryapi

import v1 "giftlist/shared/contracts/registry/v1"

type textRequest struct {
	Text string `json:"text"`
}

type addGiftRequest struct {
	Name string `json:"name"`
}

type openClaimRequest struct {
	GiftID string `json:"gift_id"`
}

type confirmClaimRequest struct {
	Name string `json:"name"`
}

// viewResponse is the body of every registry endpoint.
type viewResponse struct {
	OK            bool                     `json:"ok"`
	Error         *apiError                `json:"error,omitempty"`
	View          v1.ViewPayload           `json:"view"`
	Notifications []v1.NotificationPayload `json:"notifications"`
}
