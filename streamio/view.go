package streamio

import "github.com/cwsl/protodetect/protocol"

// Input is a read-only view over the samples currently available on one
// input lane, plus any tags positioned within that window and whether
// the upstream producer has signalled it will emit no more samples
// "Cancellation").
type Input struct {
	Samples  []protocol.Sample
	Tags     []TaggedIndex
	Finished bool
}

// TagsAt returns every tag positioned exactly at index.
func (in Input) TagsAt(index int) []Tag {
	var out []Tag
	for _, ti := range in.Tags {
		if ti.Index == index {
			out = append(out, ti.Tag)
		}
	}
	return out
}

// FindNamedUsize returns the first NamedUsize tag in the view whose name
// matches search, and true, or the zero value and false if none is found.
// MultiPortInserter uses this to find its burst trigger.
func (in Input) FindNamedUsize(search string) (index, length int, ok bool) {
	for _, ti := range in.Tags {
		if ti.Tag.Kind == TagKindNamedUsize && ti.Tag.Name == search {
			return ti.Index, ti.Tag.Value, true
		}
	}
	return 0, 0, false
}

// Output is a write-only view over the samples currently available to
// write to one output lane. Tags attached via AttachTag land at a position
// relative to the start of this view.
type Output struct {
	Samples []protocol.Sample
	Tags    []TaggedIndex
}

// AttachTag records a tag at the given index within this output view.
func (o *Output) AttachTag(index int, tag Tag) {
	o.Tags = append(o.Tags, TaggedIndex{Index: index, Tag: tag})
}
