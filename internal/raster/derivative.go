package raster

// FirstDerivative computes (dI/dx, dI/dy) with central differences. Each
// axis derivative is 0 on the first and last column (resp. row).
func FirstDerivative(f *Field) (dx, dy *Field) {
	w, h := f.Width, f.Height
	dx = MustField(w, h)
	dy = MustField(w, h)

	ParallelFor(w*h, func(start, end int) {
		for i := start; i < end; i++ {
			x, y := i%w, i/w
			if x > 0 && x < w-1 {
				dx.Data[i] = (f.Data[i+1] - f.Data[i-1]) / 2
			}
			if y > 0 && y < h-1 {
				dy.Data[i] = (f.Data[i+w] - f.Data[i-w]) / 2
			}
		}
	})
	return dx, dy
}

// SecondDerivative computes (d²I/dx², d²I/dxdy, d²I/dy²). The pure terms use
// the 3-point stencil, the cross term the centred 4-point stencil; all are 0
// where the stencil would leave the grid.
func SecondDerivative(f *Field) (dxx, dxy, dyy *Field) {
	w, h := f.Width, f.Height
	dxx = MustField(w, h)
	dxy = MustField(w, h)
	dyy = MustField(w, h)

	ParallelFor(w*h, func(start, end int) {
		for i := start; i < end; i++ {
			x, y := i%w, i/w
			innerX := x > 0 && x < w-1
			innerY := y > 0 && y < h-1
			if innerX {
				dxx.Data[i] = f.Data[i+1] - 2*f.Data[i] + f.Data[i-1]
			}
			if innerY {
				dyy.Data[i] = f.Data[i+w] - 2*f.Data[i] + f.Data[i-w]
			}
			if innerX && innerY {
				dxy.Data[i] = (f.Data[i+w+1] - f.Data[i+w-1] - f.Data[i-w+1] + f.Data[i-w-1]) / 4
			}
		}
	})
	return dxx, dxy, dyy
}
