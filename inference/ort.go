package inference

import (
	"fmt"
	"strings"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

var (
	envOnce sync.Once
	envErr  error
)

// InitRuntime loads the onnxruntime shared library once per process. An
// empty libPath uses the platform default lookup.
func InitRuntime(libPath string) error {
	envOnce.Do(func() {
		if libPath != "" {
			ort.SetSharedLibraryPath(libPath)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			envErr = fmt.Errorf("onnxruntime init: %w", err)
		}
	})
	return envErr
}

// ShutdownRuntime releases the onnxruntime environment.
func ShutdownRuntime() error {
	if !ort.IsInitialized() {
		return nil
	}
	return ort.DestroyEnvironment()
}

// ORTModel runs an ONNX graph through onnxruntime. Sessions are bound to a
// fixed set of input names, so one is kept per name set.
type ORTModel struct {
	path    string
	inputs  []TensorInfo
	threads int

	mu       sync.Mutex
	sessions map[string]*ort.DynamicAdvancedSession
}

// OpenORT reads the graph's declared inputs. Sessions are created lazily.
func OpenORT(path string, intraThreads int) (*ORTModel, error) {
	ins, _, err := ort.GetInputOutputInfo(path)
	if err != nil {
		return nil, fmt.Errorf("onnx metadata %s: %w", path, err)
	}
	infos := make([]TensorInfo, 0, len(ins))
	for _, in := range ins {
		infos = append(infos, TensorInfo{Name: in.Name, Dims: []int64(in.Dimensions)})
	}
	return &ORTModel{path: path, inputs: infos, threads: intraThreads, sessions: map[string]*ort.DynamicAdvancedSession{}}, nil
}

func (m *ORTModel) Inputs() []TensorInfo { return m.inputs }

func (m *ORTModel) Run(feeds []Feed, output string, outputLen int) ([]float32, error) {
	names := make([]string, len(feeds))
	for i, f := range feeds {
		names[i] = f.Name
	}
	sess, err := m.session(names, output)
	if err != nil {
		return nil, err
	}

	ins := make([]ort.Value, 0, len(feeds))
	defer func() {
		for _, v := range ins {
			_ = v.Destroy()
		}
	}()
	for _, f := range feeds {
		v, err := tensor(f)
		if err != nil {
			return nil, err
		}
		ins = append(ins, v)
	}

	out, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(outputLen)))
	if err != nil {
		return nil, fmt.Errorf("output tensor: %w", err)
	}
	defer out.Destroy()

	if err := sess.Run(ins, []ort.Value{out}); err != nil {
		return nil, fmt.Errorf("onnx run [%s]: %w", strings.Join(names, ","), err)
	}
	return append([]float32(nil), out.GetData()...), nil
}

func (m *ORTModel) session(inputs []string, output string) (*ort.DynamicAdvancedSession, error) {
	key := strings.Join(inputs, "\x00") + "\x01" + output
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[key]; ok {
		return s, nil
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("session options: %w", err)
	}
	defer opts.Destroy()
	if m.threads > 0 {
		if err := opts.SetIntraOpNumThreads(m.threads); err != nil {
			return nil, fmt.Errorf("session options: %w", err)
		}
	}

	s, err := ort.NewDynamicAdvancedSession(m.path, inputs, []string{output}, opts)
	if err != nil {
		return nil, fmt.Errorf("onnx session %s: %w", m.path, err)
	}
	m.sessions[key] = s
	return s, nil
}

// Close destroys every session.
func (m *ORTModel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var first error
	for k, s := range m.sessions {
		if err := s.Destroy(); err != nil && first == nil {
			first = err
		}
		delete(m.sessions, k)
	}
	return first
}

func tensor(f Feed) (ort.Value, error) {
	shape := ort.NewShape(f.Shape...)
	switch {
	case f.Float != nil:
		t, err := ort.NewTensor(shape, f.Float)
		if err != nil {
			return nil, fmt.Errorf("input %s: %w", f.Name, err)
		}
		return t, nil
	case f.Int != nil:
		t, err := ort.NewTensor(shape, f.Int)
		if err != nil {
			return nil, fmt.Errorf("input %s: %w", f.Name, err)
		}
		return t, nil
	}
	return nil, fmt.Errorf("input %s: no data", f.Name)
}
