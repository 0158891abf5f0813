/*
Package upscale orchestrates per-frame super-resolution around the
Real-CUGAN command line upscaler, degrading to local resampling when
the external path is unavailable.

Basic usage:

	opts := upscale.ResolveModel("Real-CUGAN_up2x-latest-denoise3x.pth", upscale.DefaultOptions())
	external := upscale.NewExternalProcessor("/usr/local/bin/realcugan-ncnn-vulkan", "", nil)
	pipeline := upscale.NewPipeline(opts, nil, external, nil)

	// frame comes from the host video framework as three color planes
	upscaled, err := pipeline.Upscale(ctx, frame)
	if err != nil {
	    log.Fatal(err)
	}

Upscale only errors when the host hands over a frame violating the
3-plane contract. External process failures are recovered internally,
the returned frame is then the fallback resample at the same target
dimensions.
*/
package upscale
