package nexus

import (
	"context"
	"fmt"

	"github.com/robert-malhotra/go-nexus/hdf5"
	"github.com/robert-malhotra/go-nexus/internal/ctxlog"
)

// resolveHints links every hinted field of every non-excluded stream into
// data. A name already taken by an earlier stream becomes field_<stream>.
func (b *builder) resolveHints(ctx context.Context, data *hdf5.Group, results []*streamResult) error {
	for _, sr := range results {
		if b.cfg.excluded[sr.name] {
			continue
		}
		log := ctxlog.FromContext(ctx).With("stream", sr.name)
		for device, hv := range sr.hints.All() {
			fields := deviceFields(hv)
			if len(fields) == 0 {
				log.Debug("device has no hinted fields", "device", device)
				continue
			}
			for _, field := range fields {
				target, ok := sr.fields[field]
				if !ok {
					return newSerializationError(KindMissingLinkTarget, b.uid, sr.name, field, "resolveHints",
						fmt.Errorf("hinted field %q of device %q was not written", field, device))
				}
				name := field
				if data.Contains(name) {
					name = "field_" + sr.name
				}
				if data.Contains(name) {
					return newSerializationError(KindLinkConflict, b.uid, sr.name, field, "resolveHints",
						fmt.Errorf("%s already exists in %s", name, data.Path()))
				}
				if err := b.link(data, name, target); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// link creates a soft link name in g pointing at target and marks target
// with its own path, the NeXus link convention.
func (b *builder) link(g *hdf5.Group, name string, target *hdf5.Dataset) error {
	if target == nil {
		return newSerializationError(KindMissingLinkTarget, b.uid, "", name, "link", nil)
	}
	if err := g.CreateSoftLink(name, target.Path()); err != nil {
		return b.storageError(err, "link", "link "+hdf5.JoinPath(g.Path(), name))
	}
	if err := target.SetAttr("target", target.Path()); err != nil {
		return b.storageError(err, "link", "mark target "+target.Path())
	}
	b.report.Links = append(b.report.Links, LinkRecord{Name: hdf5.JoinPath(g.Path(), name), Target: target.Path()})
	return nil
}
