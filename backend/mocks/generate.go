package mocks

//go:generate mockgen -destination mocks.go -package mocks github.com/vkngwrapper/sparse/backend CommandContext,GraphicsBackend,Heap,Resource,TransferBuffer
