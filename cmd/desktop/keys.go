package main

import "github.com/hajimehoshi/ebiten/v2"

// Jack keyboard codes for keys without a printable character.
var specialKeys = map[ebiten.Key]int16{
	ebiten.KeyEnter:      128,
	ebiten.KeyBackspace:  129,
	ebiten.KeyArrowLeft:  130,
	ebiten.KeyArrowUp:    131,
	ebiten.KeyArrowRight: 132,
	ebiten.KeyArrowDown:  133,
	ebiten.KeyHome:       134,
	ebiten.KeyEnd:        135,
	ebiten.KeyPageUp:     136,
	ebiten.KeyPageDown:   137,
	ebiten.KeyInsert:     138,
	ebiten.KeyDelete:     139,
	ebiten.KeyEscape:     140,
	ebiten.KeyF1:         141,
	ebiten.KeyF2:         142,
	ebiten.KeyF3:         143,
	ebiten.KeyF4:         144,
	ebiten.KeyF5:         145,
	ebiten.KeyF6:         146,
	ebiten.KeyF7:         147,
	ebiten.KeyF8:         148,
	ebiten.KeyF9:         149,
	ebiten.KeyF10:        150,
	ebiten.KeyF11:        151,
	ebiten.KeyF12:        152,
}

// keyCode returns the value the keyboard register should hold this frame.
// A typed character stays current while any key is held, since input
// characters only arrive on the frame they are typed.
func keyCode(pressed []ebiten.Key, typed []rune, held int16) int16 {
	if len(pressed) == 0 {
		return 0
	}
	for _, k := range pressed {
		if code, ok := specialKeys[k]; ok {
			return code
		}
	}
	if len(typed) > 0 {
		return int16(typed[len(typed)-1])
	}
	return held
}
