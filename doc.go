// Package gblcd re-renders a handheld console LCD on an SPI panel.
//
// A Pipeline reads the sampled LCD signal from a source.Source, waits for
// the falling edge of vertical sync, captures one 160x144 frame of 2-bit
// palette indices, maps them through a Palette, resamples the frame with a
// nearest-neighbor scale.Map, optionally dithers it down to two tones and
// draws it on a panel.Surface.
//
// # Basic Usage
//
//	e, err := transfer.NewSPI(port, dc, cs, &transfer.Opts{
//		Hz:         panel.ST7789.Hz,
//		BufferSize: panel.ST7789.BufferSize,
//		SwapDMA:    panel.ST7789.SwapDMA,
//		Channels:   transfer.NewPool(1),
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	s, err := panel.New("st7789", e, nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//	if err := s.Init(); err != nil {
//		log.Fatal(err)
//	}
//	p, err := gblcd.New(src, s, gblcd.Config{Center: true})
//	if err != nil {
//		log.Fatal(err)
//	}
//	err = p.Run(ctx)
//
// # Timing
//
// There is no frame queue. Drawing returns once the transfer of the previous
// frame has completed, so a slow panel lowers the frame rate instead of
// dropping frames. A transfer that times out is abandoned, counted in Stats
// and the next frame is captured as usual.
package gblcd
