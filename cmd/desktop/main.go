package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"gojack/pkg/build"
	"gojack/pkg/config"
	"gojack/pkg/grid"
	"gojack/pkg/utils"
	"gojack/pkg/vm"
)

const (
	stepsPerFrame = 200000
	stepChunk     = 1000

	charWidth  = vm.ScreenWidth / vm.TextCols
	charHeight = vm.ScreenHeight / vm.TextRows
)

type Game struct {
	vm          *vm.VM
	screenImg   *ebiten.Image // reused 512×256 bitmap canvas
	key         int16
	resumeAt    time.Time
	err         error
	keysPressed []ebiten.Key
}

func newGame(m *vm.VM) *Game {
	g := &Game{vm: m}
	m.Output = os.Stdout
	m.Wait = func(ms int) {
		g.resumeAt = time.Now().Add(time.Duration(ms) * time.Millisecond)
	}
	return g
}

func (g *Game) Update() error {
	g.keysPressed = inpututil.AppendPressedKeys(g.keysPressed[:0])
	g.key = keyCode(g.keysPressed, ebiten.AppendInputChars(nil), g.key)
	g.vm.SetKey(g.key)

	g.runFrame(time.Now())
	return nil
}

// runFrame executes up to one frame's worth of instructions, stopping early
// when the program halts, fails or sleeps in Sys.wait.
func (g *Game) runFrame(now time.Time) {
	if g.err != nil || g.vm.Halted {
		return
	}
	for done := 0; done < stepsPerFrame; done += stepChunk {
		if now.Before(g.resumeAt) {
			return
		}
		running, err := g.vm.RunFor(stepChunk)
		if err != nil {
			g.err = err
			log.Printf("Program stopped: %v", err)
			return
		}
		if !running {
			return
		}
	}
}

func (g *Game) drawBitmap(screen *ebiten.Image) {
	if g.screenImg == nil {
		g.screenImg = ebiten.NewImage(vm.ScreenWidth, vm.ScreenHeight)
	}
	g.screenImg.WritePixels(g.vm.FramebufferRGBA())
	screen.DrawImage(g.screenImg, nil)
}

func (g *Game) Draw(screen *ebiten.Image) {
	g.drawBitmap(screen)

	// Text layer
	for i, charCode := range g.vm.TextCells() {
		if charCode == 0 {
			continue
		}
		x, y := grid.GetGridCoords(i, vm.TextCols)
		ebitenutil.DebugPrintAt(screen, fmt.Sprintf("%c", charCode), x*charWidth, y*charHeight)
	}

	if g.err != nil {
		ebitenutil.DebugPrintAt(screen, g.err.Error(), 0, vm.ScreenHeight-16)
	}
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return vm.ScreenWidth, vm.ScreenHeight
}

func main() {
	if len(os.Args) < 2 {
		log.Fatalf("usage: %s <dir|file.jack|file.vm>...", os.Args[0])
	}

	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	var paths []string
	for _, arg := range os.Args[1:] {
		fullPath, _, err := utils.GetPathInfo(arg)
		if err != nil {
			log.Fatalf("Bad path %s: %v", arg, err)
		}
		paths = append(paths, fullPath)
	}

	prog, err := build.Program(context.Background(), cfg.Jobs, paths...)
	if err != nil {
		log.Fatalf("Compilation failed: %v", err)
	}
	m, err := vm.New(prog)
	if err != nil {
		log.Fatalf("Failed to start program: %v", err)
	}

	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowSize(vm.ScreenWidth*cfg.Scale, vm.ScreenHeight*cfg.Scale)
	ebiten.SetWindowTitle("Jack Desktop")

	if err := ebiten.RunGame(newGame(m)); err != nil {
		log.Fatal(err)
	}
}
