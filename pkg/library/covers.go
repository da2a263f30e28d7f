package library

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"
	_ "image/png"
	"io"

	"golang.org/x/image/draw"

	"github.com/sonarhq/sonar/pkg/sonar"
)

const montageCell = 256

// PlaylistGenerateCover synthesizes a cover for a playlist from its
// tracks' covers: up to four distinct covers scaled into a 2x2
// montage, stored as a JPEG image blob and attached to the playlist.
func (c *Context) PlaylistGenerateCover(ctx context.Context, id sonar.PlaylistID) error {
	tracks, err := c.PlaylistListTracks(ctx, id, sonar.ListAll())
	if err != nil {
		return err
	}

	var covers []image.Image
	seen := map[sonar.ImageID]struct{}{}
	for _, track := range tracks {
		if len(covers) == 4 {
			break
		}
		if track.CoverArt == nil {
			continue
		}
		if _, dup := seen[*track.CoverArt]; dup {
			continue
		}
		seen[*track.CoverArt] = struct{}{}
		img, err := c.decodeImage(ctx, *track.CoverArt)
		if err != nil {
			continue
		}
		covers = append(covers, img)
	}
	if len(covers) == 0 {
		return sonar.Errorf(sonar.ErrNotFound, "playlist %s has no track covers", id)
	}

	montage := montageCovers(covers)
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, montage, &jpeg.Options{Quality: 90}); err != nil {
		return sonar.WrapInternal("encode playlist cover", err)
	}
	imageID, err := c.ImageCreate(ctx, sonar.ImageCreate{MimeType: "image/jpeg", Data: buf.Bytes()})
	if err != nil {
		return err
	}
	_, err = c.PlaylistUpdate(ctx, id, sonar.PlaylistUpdate{CoverArt: sonar.Set(imageID)})
	return err
}

func (c *Context) decodeImage(ctx context.Context, id sonar.ImageID) (image.Image, error) {
	_, rc, err := c.ImageOpen(ctx, id)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	return img, err
}

// montageCovers lays the covers out deterministically: one cover
// fills the image, two or three tile the first row, four make a 2x2
// grid. Cells are scaled with bilinear interpolation.
func montageCovers(covers []image.Image) image.Image {
	cols, rows := 2, 2
	switch len(covers) {
	case 1:
		cols, rows = 1, 1
	case 2:
		cols, rows = 2, 1
	case 3:
		covers = covers[:2]
		cols, rows = 2, 1
	}
	out := image.NewRGBA(image.Rect(0, 0, cols*montageCell, rows*montageCell))
	for i, cover := range covers {
		col, row := i%cols, i/cols
		cell := image.Rect(col*montageCell, row*montageCell, (col+1)*montageCell, (row+1)*montageCell)
		draw.ApproxBiLinear.Scale(out, cell, cover, cover.Bounds(), draw.Src, nil)
	}
	return out
}
