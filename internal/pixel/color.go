package pixel

const (
	RED_OFFSET   uint8 = 0x10
	GREEN_OFFSET uint8 = 0x08
	BLUE_OFFSET  uint8 = 0x0
)

func getcolor(c uint32, off uint8) uint8 {
	var mask uint32 = 0xFF << off
	return uint8((c & mask) >> off)
}

// Color packs separate R,G,B into a 24-bit RGB value. The packed format is
// always RGB, regardless of the strip's color order.
func Color(r, g, b uint8) uint32 {
	return uint32(r)<<RED_OFFSET | uint32(g)<<GREEN_OFFSET | uint32(b)<<BLUE_OFFSET
}

// Unpack splits a packed color. Bits above 23 are ignored.
func Unpack(c uint32) (r, g, b uint8) {
	return getcolor(c, RED_OFFSET), getcolor(c, GREEN_OFFSET), getcolor(c, BLUE_OFFSET)
}

func h2rgb(v1, v2, hue uint32) uint32 {
	if hue < 60 {
		return v1*60 + (v2-v1)*hue
	}
	if hue < 180 {
		return v2 * 60
	}
	if hue < 240 {
		return v1*60 + (v2-v1)*(240-hue)
	}
	return v1 * 60
}

// HSL converts hue, saturation and lightness to a packed RGB color using
// integer arithmetic only.
//
//	hue:        0 to 359, position on the color wheel: 0=red, 120=green, 240=blue
//	saturation: 0 to 100, 0 is gray, 100 is full color
//	lightness:  0 to 100, 0 is black, 50 is the pure color, 100 is white
//
// Hue wraps modulo 360; saturation and lightness saturate at 100.
func HSL(hue, saturation, lightness uint32) uint32 {
	var red, green, blue uint32

	if hue > 359 {
		hue %= 360
	}
	if saturation > 100 {
		saturation = 100
	}
	if lightness > 100 {
		lightness = 100
	}

	if saturation == 0 {
		red = lightness * 255 / 100
		green, blue = red, red
	} else {
		var var1, var2 uint32
		if lightness < 50 {
			var2 = lightness * (100 + saturation)
		} else {
			var2 = (lightness+saturation)*100 - saturation*lightness
		}
		var1 = lightness*200 - var2

		rh := hue + 120
		if hue >= 240 {
			rh = hue - 240
		}
		bh := hue + 240
		if hue >= 120 {
			bh = hue - 120
		}
		red = h2rgb(var1, var2, rh) * 255 / 600000
		green = h2rgb(var1, var2, hue) * 255 / 600000
		blue = h2rgb(var1, var2, bh) * 255 / 600000
	}
	return red<<RED_OFFSET | green<<GREEN_OFFSET | blue<<BLUE_OFFSET
}
