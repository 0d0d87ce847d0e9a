package router

import "context"

type routerCtxKey string

const (
	imageGenOverrideCtxKey routerCtxKey = "sa_router_imagegen_override"
	visionOverrideCtxKey   routerCtxKey = "sa_router_vision_override"
)

// modelOverride pairs a provider id with a model id for a single-purpose
// override (e.g. the provider/model an agent wants used for image
// generation, independent of its main chat provider).
type modelOverride struct {
	provider string
	model    string
}

// WithImageGenOverride attaches a provider/model pair that image-generation
// tool calls should use instead of the turn's resolved chat provider.
func WithImageGenOverride(ctx context.Context, provider, model string) context.Context {
	return context.WithValue(ctx, imageGenOverrideCtxKey, modelOverride{provider, model})
}

// ImageGenOverrideFromCtx returns the image-generation override set by
// WithImageGenOverride, if any.
func ImageGenOverrideFromCtx(ctx context.Context) (provider, model string, ok bool) {
	v, found := ctx.Value(imageGenOverrideCtxKey).(modelOverride)
	if !found {
		return "", "", false
	}
	return v.provider, v.model, true
}

// WithVisionOverride attaches a provider/model pair that vision (image
// understanding) tool calls should use instead of the turn's resolved chat
// provider.
func WithVisionOverride(ctx context.Context, provider, model string) context.Context {
	return context.WithValue(ctx, visionOverrideCtxKey, modelOverride{provider, model})
}

// VisionOverrideFromCtx returns the vision override set by
// WithVisionOverride, if any.
func VisionOverrideFromCtx(ctx context.Context) (provider, model string, ok bool) {
	v, found := ctx.Value(visionOverrideCtxKey).(modelOverride)
	if !found {
		return "", "", false
	}
	return v.provider, v.model, true
}
