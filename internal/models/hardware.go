package models

// HardwareType classifies the accelerator found on a target host.
type HardwareType string

const (
	HardwareCUDA        HardwareType = "cuda"
	HardwareROCm        HardwareType = "rocm"
	HardwareStrix       HardwareType = "strix"
	HardwareCPU         HardwareType = "cpu"
	HardwareUnsupported HardwareType = "unsupported"
)

// Confidence rates how directly the classification was observed.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// HardwareDetails keeps the raw probe evidence for display and audit. It is
// not reused programmatically beyond the Detected classification.
type HardwareDetails struct {
	Architecture  string `json:"architecture,omitempty"`
	DockerPresent bool   `json:"docker"`
	DockerVersion string `json:"dockerVersion,omitempty"`
	GPUName       string `json:"gpuName,omitempty"`
	DriverVersion string `json:"driverVersion,omitempty"`
	CUDAVersion   string `json:"cudaVersion,omitempty"`
	ROCmVersion   string `json:"rocmVersion,omitempty"`
	CPUModel      string `json:"cpuModel,omitempty"`
}

/**
 * Hardware detection result
 * @property {HardwareType} detected - Classification, empty when the probe itself failed
 * @property {Confidence} confidence - high/medium/low rating of the classification
 * @property {HardwareDetails} details - Raw probe evidence
 * @property {string} unsupportedReason - Set iff detected == unsupported
 * @property {string} error - Probe/connection failure, distinct from unsupported
 */
type HardwareDetectionResult struct {
	Detected          HardwareType    `json:"detected,omitempty"`
	Confidence        Confidence      `json:"confidence,omitempty"`
	Details           HardwareDetails `json:"details"`
	UnsupportedReason string          `json:"unsupportedReason,omitempty"`
	Error             string          `json:"error,omitempty"`
}

// Deployable reports whether a deployment may proceed from this result.
func (r *HardwareDetectionResult) Deployable() bool {
	return r.Error == "" && r.Detected != "" && r.Detected != HardwareUnsupported
}
